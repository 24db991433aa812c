package geocode

import (
	"fmt"
)

// TransportError reports a request that could not complete: connection
// failures, timeouts, or a non-2xx HTTP status.
type TransportError struct {
	Address    string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("geocode: census request for %q: status %d: %v", e.Address, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("geocode: census request for %q: %v", e.Address, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that is not the expected Census JSON.
type ParseError struct {
	Address string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("geocode: census response for %q: %v", e.Address, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConnectivityError reports a failed self-test. The run must not proceed.
type ConnectivityError struct {
	Address       string
	ExpectedTract string
	GotTract      string
	Err           error // set when the self-test request itself failed
}

func (e *ConnectivityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocode: self-test for %q failed: %v; check your data format and internet connection", e.Address, e.Err)
	}
	return fmt.Sprintf("geocode: self-test for %q returned tract %q, want %q; check your data format and internet connection",
		e.Address, e.GotTract, e.ExpectedTract)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
