package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"finch-command-runner/internal/model"
)

// LineSource yields lines lazily. *bufio.Scanner satisfies it.
type LineSource interface {
	Scan() bool
	Text() string
	Err() error
}

// Options carries optional observers for a parse.
type Options struct {
	// OnAccept is called once per recognised line, in input order.
	OnAccept func(line int, in model.Instruction)
}

// Parse consumes src once and returns the instruction sequence. Any unrecognised
// line fails the whole parse and no sequence is returned.
func Parse(src LineSource, opts Options) (model.Sequence, error) {
	seq := model.Sequence{}
	line := 0
	for src.Scan() {
		line++
		text := src.Text()
		in, ok := model.Lookup(text)
		if !ok {
			return nil, &ParseError{Kind: UnrecognizedCommand, Line: line, Text: text}
		}
		seq = append(seq, in)
		if opts.OnAccept != nil {
			opts.OnAccept(line, in)
		}
	}
	if err := src.Err(); err != nil {
		var long *lineTooLongError
		switch {
		case errors.As(err, &long):
			return nil, &ParseError{Kind: UnrecognizedCommand, Line: line + 1, Text: long.prefix, Err: bufio.ErrTooLong}
		case errors.Is(err, bufio.ErrTooLong):
			return nil, &ParseError{Kind: UnrecognizedCommand, Line: line + 1, Err: err}
		}
		return nil, &ParseError{Kind: IOFailure, Line: line + 1, Err: err}
	}
	return seq, nil
}

const (
	maxLineBytes   = 64 * 1024
	longLinePrefix = 64
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseReader scans r line by line. A leading UTF-8 byte-order mark and the
// line terminators (\n or \r\n) are dropped; nothing else is trimmed.
func ParseReader(r io.Reader, opts Options) (model.Sequence, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	sc.Split(scanCommandLines)
	return Parse(sc, opts)
}

// lineTooLongError carries the start of a line that filled the scan buffer.
type lineTooLongError struct {
	prefix string
}

func (e *lineTooLongError) Error() string {
	return fmt.Sprintf("line longer than %d bytes", maxLineBytes)
}

func scanCommandLines(data []byte, atEOF bool) (int, []byte, error) {
	advance, token, err := bufio.ScanLines(data, atEOF)
	if advance == 0 && token == nil && err == nil && len(data) >= maxLineBytes {
		return 0, nil, &lineTooLongError{prefix: string(data[:longLinePrefix])}
	}
	return advance, token, err
}

// ParseFile opens path and parses it. A file that cannot be opened yields
// a SourceUnavailable error.
func ParseFile(path string, opts Options) (model.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Kind: SourceUnavailable, Text: path, Err: err}
	}
	defer f.Close()
	seq, err := ParseReader(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return seq, nil
}

// ErrorKind classifies a ParseError.
type ErrorKind string

const (
	SourceUnavailable   ErrorKind = "source_unavailable"
	UnrecognizedCommand ErrorKind = "unrecognized_command"
	IOFailure           ErrorKind = "io_failure"
)

// ParseError reports why a line source could not be turned into a sequence.
// Text holds the offending line for UnrecognizedCommand and the path for SourceUnavailable.
type ParseError struct {
	Kind ErrorKind
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case SourceUnavailable:
		return fmt.Sprintf("command source %q unavailable: %v", e.Text, e.Err)
	case UnrecognizedCommand:
		if e.Err != nil {
			return fmt.Sprintf("line %d: unrecognized command %q: %v", e.Line, e.Text, e.Err)
		}
		return fmt.Sprintf("line %d: unrecognized command %q", e.Line, e.Text)
	default:
		return fmt.Sprintf("line %d: read failed: %v", e.Line, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KindOf returns the ParseError kind carried by err, or "" if err is not a parse failure.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func IsSourceUnavailable(err error) bool {
	return KindOf(err) == SourceUnavailable
}
