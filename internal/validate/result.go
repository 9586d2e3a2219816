package validate

import (
	"fmt"
	"sort"
)

// Code identifies a class of finding.
type Code string

const (
	CodeParseError             Code = "PARSE_ERROR"
	CodeCircularDependency     Code = "CIRCULAR_DEPENDENCY"
	CodeMissingJobReference    Code = "MISSING_JOB_REFERENCE"
	CodeInvalidOutputReference Code = "INVALID_OUTPUT_REFERENCE"
	CodeUnreachableJob         Code = "UNREACHABLE_JOB"
	CodeSelfReferencing        Code = "SELF_REFERENCING_CONDITION"
	CodeHardcodedSecret        Code = "HARDCODED_SECRET"
)

// Issue is one error or warning.
type Issue struct {
	Code     Code   `json:"code"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
	Line     int    `json:"line,omitempty"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", i.Code, i.Line, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

// Result holds the findings of one validation. Valid is false whenever
// Errors is non-empty; warnings never affect it.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Counts tallies errors and warnings by code.
func (r Result) Counts() map[Code]int {
	counts := make(map[Code]int)
	for _, i := range r.Errors {
		counts[i.Code]++
	}
	for _, i := range r.Warnings {
		counts[i.Code]++
	}
	return counts
}

// Codes returns the distinct codes present, sorted.
func (r Result) Codes() []Code {
	counts := r.Counts()
	codes := make([]Code, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// WithWarnings returns a copy of r with extra warnings appended.
func (r Result) WithWarnings(issues ...Issue) Result {
	out := r
	out.Warnings = append(append([]Issue(nil), r.Warnings...), issues...)
	return out
}

type collector struct {
	errors   []Issue
	warnings []Issue
}

func (c *collector) errorf(code Code, loc string, line int, format string, args ...any) {
	c.errors = append(c.errors, Issue{Code: code, Message: fmt.Sprintf(format, args...), Location: loc, Line: line})
}

func (c *collector) warnf(code Code, loc string, line int, format string, args ...any) {
	c.warnings = append(c.warnings, Issue{Code: code, Message: fmt.Sprintf(format, args...), Location: loc, Line: line})
}

func (c *collector) result() Result {
	return Result{Valid: len(c.errors) == 0, Errors: c.errors, Warnings: c.warnings}
}
