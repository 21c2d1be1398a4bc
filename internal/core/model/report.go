package model

import (
	"fmt"
	"strings"
)

// IssueKind classifies a non-fatal anomaly found while loading a trace.
type IssueKind int

const (
	IssueCorruptTrace IssueKind = iota
	IssueMalformedTimestamp
	IssueDecoderUnavailable
	IssueNonMonotonicIndex
)

func (k IssueKind) String() string {
	switch k {
	case IssueCorruptTrace:
		return "CorruptTrace"
	case IssueMalformedTimestamp:
		return "MalformedTimestamp"
	case IssueDecoderUnavailable:
		return "DecoderUnavailable"
	case IssueNonMonotonicIndex:
		return "NonMonotonicIndex"
	default:
		return fmt.Sprintf("Issue(%d)", int(k))
	}
}

// MarshalText lets report entries serialize kinds by name.
func (k IssueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name written by MarshalText.
func (k *IssueKind) UnmarshalText(text []byte) error {
	for _, kind := range []IssueKind{IssueCorruptTrace, IssueMalformedTimestamp, IssueDecoderUnavailable, IssueNonMonotonicIndex} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown issue kind %q", text)
}

// LoadIssue is one entry of a LoadReport. Row is -1 when the issue is not
// tied to an indexed row.
type LoadIssue struct {
	Kind    IssueKind `json:"kind"`
	Row     int       `json:"row"`
	Offset  uint64    `json:"offset"`
	Message string    `json:"message"`
}

func (i LoadIssue) String() string {
	if i.Row >= 0 {
		return fmt.Sprintf("%s: row %d @%d: %s", i.Kind, i.Row, i.Offset, i.Message)
	}
	return fmt.Sprintf("%s: @%d: %s", i.Kind, i.Offset, i.Message)
}

// LoadReport accumulates non-fatal issues in the order they were found.
type LoadReport struct {
	Issues []LoadIssue `json:"issues"`
}

// NewLoadReport returns an empty report.
func NewLoadReport() *LoadReport {
	return &LoadReport{Issues: make([]LoadIssue, 0)}
}

// Add appends an issue.
func (r *LoadReport) Add(kind IssueKind, row int, offset uint64, format string, args ...interface{}) {
	r.Issues = append(r.Issues, LoadIssue{
		Kind:    kind,
		Row:     row,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	})
}

// Merge appends all issues of other, keeping their order.
func (r *LoadReport) Merge(other *LoadReport) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// Len returns the number of issues.
func (r *LoadReport) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Issues)
}

// Count returns the number of issues of the given kind.
func (r *LoadReport) Count(kind IssueKind) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

// Summary renders a one-line digest such as "2 issues (1 CorruptTrace, 1 MalformedTimestamp)".
func (r *LoadReport) Summary() string {
	if r.Len() == 0 {
		return "no issues"
	}
	var parts []string
	for _, kind := range []IssueKind{IssueCorruptTrace, IssueMalformedTimestamp, IssueDecoderUnavailable, IssueNonMonotonicIndex} {
		if n := r.Count(kind); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, kind))
		}
	}
	noun := "issues"
	if r.Len() == 1 {
		noun = "issue"
	}
	return fmt.Sprintf("%d %s (%s)", r.Len(), noun, strings.Join(parts, ", "))
}
