package sdk

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bhandras/kixsync/pkg/transport"
)

const (
	// defaultPollTimeout bounds a single long-poll request.
	defaultPollTimeout = 60 * time.Second
	// zxLen is the length of the per-request cache-busting nonce.
	zxLen = 12
)

// Config controls how a Document talks to the service. The zero value is
// ready to use.
type Config struct {
	// Transport performs requests. When nil, Open creates a resty-backed
	// client with the default headers for the document host, and Close
	// releases it.
	Transport transport.Doer
	// Timeout bounds every non-poll request made by the default transport.
	Timeout time.Duration
	// PollTimeout bounds one Sync request. Its expiry means "no new events".
	PollTimeout time.Duration
	// Headers are added to (or override) the default header set.
	Headers map[string]string
	// Nonce returns the zx request nonce.
	Nonce func() string
	// Now returns the current time, used for the isq parameter.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaultPollTimeout
	}
	if c.Nonce == nil {
		c.Nonce = genZx
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// genZx returns a random nonce drawn from 'a' through 'y'.
func genZx() string {
	b := make([]byte, zxLen)
	for i := range b {
		b[i] = byte('a' + rand.IntN(25))
	}
	return string(b)
}

// genSmb derives the smb token from the server model version.
func genSmb(smv string) string {
	return fmt.Sprintf("[%s, oAM=]", smv)
}
