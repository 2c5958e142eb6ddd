package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/coupn-app/coupn/internal/common"
)

// ErrorKind classifies provider failures.
type ErrorKind int

// Error kinds.
const (
	KindTransport ErrorKind = iota + 1
	KindTimeout
	KindUpstreamStatus
	KindMalformedResponse
	KindContractViolation
	KindConfiguration
)

// Sentinels matched by errors.Is against an *OracleError of the same kind.
var (
	ErrTransport         = errors.New("transport error")
	ErrTimeout           = errors.New("timeout")
	ErrUpstreamStatus    = errors.New("upstream status error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrContractViolation = errors.New("contract violation")
	ErrConfiguration     = errors.New("configuration error")

	// ErrEmptyQuery is returned when a search query is blank after trimming.
	ErrEmptyQuery = errors.New("empty query")
	// ErrEmptyInput is returned for empty audio or text payloads.
	ErrEmptyInput = errors.New("empty input")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindTimeout:
		return ErrTimeout
	case KindUpstreamStatus:
		return ErrUpstreamStatus
	case KindMalformedResponse:
		return ErrMalformedResponse
	case KindContractViolation:
		return ErrContractViolation
	case KindConfiguration:
		return ErrConfiguration
	default:
		return nil
	}
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "unknown"
}

// OracleError is the failure type for every provider call.
type OracleError struct {
	Err        error
	Op         string
	Kind       ErrorKind
	StatusCode int
}

func (e *OracleError) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind. A 429
// status also matches common.ErrRateLimit.
func (e *OracleError) Is(target error) bool {
	if target == common.ErrRateLimit {
		return e.Kind == KindUpstreamStatus && e.StatusCode == http.StatusTooManyRequests
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NewError builds an OracleError of the given kind.
func NewError(kind ErrorKind, op string, err error) *OracleError {
	return &OracleError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or zero when err is not an OracleError.
func KindOf(err error) ErrorKind {
	var oe *OracleError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return 0
}

// IsRetryable reports whether a failed call may succeed if repeated.
func IsRetryable(err error) bool {
	var oe *OracleError
	if !errors.As(err, &oe) {
		return false
	}
	switch oe.Kind {
	case KindTransport, KindTimeout:
		return true
	case KindUpstreamStatus:
		return oe.StatusCode == http.StatusTooManyRequests || oe.StatusCode >= 500
	default:
		return false
	}
}
