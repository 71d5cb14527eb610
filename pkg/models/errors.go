package models

import "fmt"

// ParseError reports a malformed entry in a label source.
type ParseError struct {
	Source string // file the line came from
	Line   int    // 1-based line number
	Text   string // offending line
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %q", e.Source, e.Line, e.Reason, e.Text)
}

// IOError reports a failure reading an input or writing an output file.
type IOError struct {
	Op   string // "open", "read", "write", ...
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
