// Package parser extracts the request line and the Host and Connection
// headers from a raw HTTP/1.x request buffer.
//
// Header lookup is a literal, case-sensitive search for the first "Host: " and
// "Connection: " in the buffer; each value runs up to the next carriage
// return. Folded headers and bare line-feed terminators are not supported.
package parser

import (
	"bytes"
	"errors"
	"fmt"
)

// Field bounds. Token bounds are inclusive; header bounds are the field size,
// so a value must be strictly shorter.
const (
	MaxMethodLen     = 15
	MaxURLLen        = 1023
	MaxVersionLen    = 15
	MaxHostLen       = 256
	MaxConnectionLen = 32
)

var (
	// ErrInvalidInput is returned for a nil or empty buffer.
	ErrInvalidInput = errors.New("invalid input: empty request buffer")

	// ErrParseFailure is returned when the request line is not exactly three
	// tokens within their bounds.
	ErrParseFailure = errors.New("malformed request line")

	// ErrHeaderTooLong is returned when a Host or Connection value reaches
	// its field bound.
	ErrHeaderTooLong = errors.New("header value too long")
)

var (
	hostPrefix       = []byte("Host: ")
	connectionPrefix = []byte("Connection: ")
)

// HeaderError reports which header exceeded its bound.
type HeaderError struct {
	Header string
	Length int
	Max    int
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s header value is %d bytes, limit is %d", e.Header, e.Length, e.Max-1)
}

func (e *HeaderError) Unwrap() error {
	return ErrHeaderTooLong
}

// Request holds the fields the proxy needs. Absent headers leave the
// corresponding field empty.
type Request struct {
	Method     string
	URL        string
	Version    string
	Host       string
	Connection string
}

// Parse parses buf. It never retains buf.
func Parse(buf []byte) (*Request, error) {
	if len(buf) == 0 {
		return nil, ErrInvalidInput
	}

	line := buf
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	tokens := bytes.Fields(line)
	if len(tokens) != 3 {
		return nil, fmt.Errorf("%w: got %d tokens, want 3", ErrParseFailure, len(tokens))
	}
	if len(tokens[0]) > MaxMethodLen || len(tokens[1]) > MaxURLLen || len(tokens[2]) > MaxVersionLen {
		return nil, fmt.Errorf("%w: token exceeds its length limit", ErrParseFailure)
	}

	req := &Request{
		Method:  string(tokens[0]),
		URL:     string(tokens[1]),
		Version: string(tokens[2]),
	}

	var err error
	if req.Host, err = headerValue(buf, hostPrefix, "Host", MaxHostLen); err != nil {
		return nil, err
	}
	if req.Connection, err = headerValue(buf, connectionPrefix, "Connection", MaxConnectionLen); err != nil {
		return nil, err
	}

	return req, nil
}

// headerValue returns the text after the first prefix up to the next '\r'.
// A missing header or a value without a terminating '\r' yields "".
func headerValue(buf, prefix []byte, name string, max int) (string, error) {
	start := bytes.Index(buf, prefix)
	if start < 0 {
		return "", nil
	}
	rest := buf[start+len(prefix):]

	end := bytes.IndexByte(rest, '\r')
	if end < 0 {
		return "", nil
	}
	if end >= max {
		return "", &HeaderError{Header: name, Length: end, Max: max}
	}
	return string(rest[:end]), nil
}
