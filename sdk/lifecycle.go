package sdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/bhandras/kixsync/pkg/transport"
)

// Close leaves the session. Any response from the service counts as
// success; a transport failure is returned and the Document stays open.
// After a successful Close every method returns ErrClosed.
func (d *Document) Close(ctx context.Context) error {
	if d.closed {
		return ErrClosed
	}

	_, err := d.doer.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    d.endpoint("leave", d.clientParams()),
	})
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	d.closed = true
	d.release()
	logger.Debugf("sdk: closed doc=%s sid=%s", d.docID, d.sessionID)
	return nil
}
