package sdk

import (
	"errors"

	"github.com/bhandras/kixsync/internal/wire"
	"github.com/bhandras/kixsync/pkg/transport"
)

var (
	// ErrMalformedResponse means an expected marker or field was missing or
	// unparsable in a scraped page or an event frame.
	ErrMalformedResponse = wire.ErrMalformed

	// ErrClosed is returned by every operation on a closed Document. No
	// request is made.
	ErrClosed = errors.New("document used after close")

	// ErrMirrorDiverged means a local edit was accepted by the server but
	// could not be applied to the local content. The Document should be
	// discarded and reopened; retrying in place will not repair it.
	ErrMirrorDiverged = errors.New("local content diverged from server")
)

// Transport failure kinds. Errors returned by Document methods match these
// with errors.Is.
var (
	ErrTimeout    = transport.ErrTimeout
	ErrConnection = transport.ErrConnection
	ErrStatus     = transport.ErrStatus
	ErrTransport  = transport.ErrOther
	ErrIO         = transport.ErrIO
)
