package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind classifies a transport failure.
type Kind int

const (
	// KindOther is any failure that does not fit a narrower kind.
	KindOther Kind = iota
	// KindTimeout means the request deadline elapsed.
	KindTimeout
	// KindConnection means the remote could not be reached.
	KindConnection
	// KindStatus means the server answered with a non-2xx status.
	KindStatus
	// KindIO means reading the response failed locally.
	KindIO
)

// Sentinel errors matched by (*Error).Is.
var (
	ErrTimeout    = errors.New("transport timeout")
	ErrConnection = errors.New("connection failed")
	ErrStatus     = errors.New("unexpected response status")
	ErrOther      = errors.New("transport failure")
	ErrIO         = errors.New("local i/o failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindConnection:
		return ErrConnection
	case KindStatus:
		return ErrStatus
	case KindIO:
		return ErrIO
	default:
		return ErrOther
	}
}

// Error is the error returned by Doer implementations in this package.
type Error struct {
	// Op is a short description of the request, e.g. "POST save".
	Op string
	// Kind classifies the failure.
	Kind Kind
	// StatusCode is set for KindStatus.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: %v: %d", e.Op, e.Kind.sentinel(), e.StatusCode)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Classify wraps err into an *Error with the narrowest matching kind.
//
// Timeouts win over everything else, then connection failures, then local
// read failures.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Kind: classifyKind(err), Err: err}
}

func classifyKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnection
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindConnection
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return KindIO
	}
	return KindOther
}
