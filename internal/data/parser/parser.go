// Package parser probes many trace files concurrently.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/data/index"
	"github.com/penwyp/go-apitrace/internal/data/tracefile"
	"github.com/penwyp/go-apitrace/internal/util"
)

// Probe summarizes one trace file.
type Probe struct {
	File       string           `json:"file"`
	Size       int64            `json:"size"`
	FileHeader model.FileHeader `json:"fileHeader"`
	// Packets and Issues are only filled by deep probes.
	Packets int               `json:"packets,omitempty"`
	Issues  *model.LoadReport `json:"issues,omitempty"`
	Error   error             `json:"-"`
}

// ErrorText returns the probe error as a string, or "".
func (p Probe) ErrorText() string {
	if p.Error == nil {
		return ""
	}
	return p.Error.Error()
}

// Parser reads trace file headers, optionally indexing whole files.
type Parser struct {
	concurrency int
	deep        bool
	logger      util.LoggerInterface
}

// NewParser creates a Parser running at most concurrency probes at once.
func NewParser(concurrency int, logger util.LoggerInterface) *Parser {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Parser{concurrency: concurrency, logger: util.OrNop(logger)}
}

// Deep makes probes build the full index to count packets and issues.
func (p *Parser) Deep(deep bool) *Parser {
	p.deep = deep
	return p
}

// ProbeFile reads the header of one trace file.
func (p *Parser) ProbeFile(ctx context.Context, path string) Probe {
	probe := Probe{File: path}

	file, err := os.Open(path)
	if err != nil {
		probe.Error = err
		return probe
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		probe.Error = err
		return probe
	}
	probe.Size = stat.Size()

	var buf [model.FileHeaderSize]byte
	if _, err := io.ReadFull(file, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: file is %d bytes", tracefile.ErrNotTrace, probe.Size)
		}
		probe.Error = err
		return probe
	}
	if probe.FileHeader, err = tracefile.DecodeFileHeader(buf[:]); err != nil {
		probe.Error = err
		return probe
	}

	if p.deep {
		idx, report, err := index.Build(ctx, file, probe.Size, index.Options{Logger: p.logger})
		if err != nil {
			probe.Error = err
			return probe
		}
		probe.Packets = idx.Len()
		probe.Issues = report
	}
	return probe
}

// ProbeFiles probes files concurrently and returns results in input order.
// Per-file failures are reported in Probe.Error; the returned error is
// non-nil only when ctx is cancelled.
func (p *Parser) ProbeFiles(ctx context.Context, files []string) ([]Probe, error) {
	start := time.Now()
	results := make([]Probe, len(files))

	p.logger.Debug("probing trace files", util.F("files", len(files)), util.F("concurrency", p.concurrency), util.F("deep", p.deep))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.ProbeFile(gctx, file)
			if results[i].Error != nil {
				p.logger.Debug("probe failed", util.F("file", file), util.F("error", results[i].Error))
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.logger.Debug("probing finished", util.F("duration", time.Since(start).String()))
	return results, nil
}
