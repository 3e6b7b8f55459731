package entities

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamTimeout          = errors.New("upstream request timed out")
	ErrUpstreamHTTP             = errors.New("upstream returned non-2xx status")
	ErrUpstreamMalformedPayload = errors.New("upstream returned invalid payload")
	ErrUpstreamUnavailable      = errors.New("upstream unavailable and no cached data")

	ErrRateUnavailable     = errors.New("rate not available")
	ErrInvalidAmount       = errors.New("amount must be >= 0")
	ErrUnsupportedCurrency = errors.New("currency is not supported")
)

// UpstreamHTTPError carries the status code of a rejected upstream request.
type UpstreamHTTPError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream http status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamHTTPError) Unwrap() error {
	return ErrUpstreamHTTP
}
