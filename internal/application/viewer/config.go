// Package viewer runs the interactive terminal timeline for one trace file.
package viewer

import (
	"errors"
	"time"

	"github.com/penwyp/go-apitrace/internal/core/trace"
)

// Config contains configuration for the view command
type Config struct {
	TracePath string
	// Trace is passed to trace.Open for every (re)load.
	Trace trace.Options

	// Navigation
	ZoomStep   float64
	ScrollStep float64 // share of the viewport width per scroll step

	// Display settings
	LayoutStyle int
	DetailLines int
	NoColor     bool

	// Refresh settings
	Follow        bool
	Debounce      time.Duration
	UIRefreshRate float64 // redraws per second while a load is running
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.TracePath == "" {
		return errors.New("trace path is required")
	}
	if c.ZoomStep == 0 {
		c.ZoomStep = 1.5
	}
	if c.ZoomStep <= 1 {
		return errors.New("zoom step must be greater than 1")
	}
	if c.ScrollStep == 0 {
		c.ScrollStep = 0.1
	}
	if c.ScrollStep < 0 || c.ScrollStep > 1 {
		return errors.New("scroll step must be in (0, 1]")
	}
	if c.DetailLines == 0 {
		c.DetailLines = 6
	}
	if c.Debounce == 0 {
		c.Debounce = 250 * time.Millisecond
	}
	if c.UIRefreshRate == 0 {
		c.UIRefreshRate = 8
	}
	return nil
}
