package feed

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
)

// TransportError is the HTTP-level cause of a failed feed request.
type TransportError struct {
	Status     int
	StatusText string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Status, e.StatusText)
}

// NewTransportError builds a TransportError, filling in the standard status
// text when text is empty.
func NewTransportError(status int, text string) *TransportError {
	if text == "" {
		text = http.StatusText(status)
	}
	return &TransportError{Status: status, StatusText: text}
}

// FeedError is a failed feed load with the source location where the
// failure was detected.
type FeedError struct {
	Line    int
	File    string
	Message string
	// Cause is set when the failure came from an HTTP response.
	Cause *TransportError
	Err   error
}

func (e *FeedError) Error() string {
	msg := fmt.Sprintf("feed: %s (%s:%d)", e.Message, e.File, e.Line)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FeedError) Unwrap() error { return e.Err }

// Wrap turns err into a FeedError located at the caller. A TransportError
// anywhere in err's chain becomes the cause. Wrap returns nil for nil and
// passes existing FeedErrors through.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var fe *FeedError
	if errors.As(err, &fe) {
		return err
	}
	out := at(2, err.Error())
	out.Err = err
	var te *TransportError
	if errors.As(err, &te) {
		out.Cause = te
	}
	return out
}

// Errorf creates a FeedError located at the caller.
func Errorf(cause *TransportError, format string, args ...any) error {
	out := at(2, fmt.Sprintf(format, args...))
	out.Cause = cause
	if cause != nil {
		out.Err = cause
	}
	return out
}

func at(skip int, msg string) *FeedError {
	out := &FeedError{Message: msg, File: "unknown"}
	if _, file, line, ok := runtime.Caller(skip); ok {
		out.File = filepath.Base(file)
		out.Line = line
	}
	return out
}
