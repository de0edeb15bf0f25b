package sdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bhandras/kixsync/internal/wire"
	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/bhandras/kixsync/pkg/transport"
)

// Insert inserts text immediately before the character at 1-based position
// pos; pos == len+1 appends. text is sent unescaped and must not contain
// characters that need escaping (quotes, backslashes, newlines).
//
// If pos is outside [1, len+1] the command has already been accepted by the
// server when the local apply fails; Insert then returns ErrMirrorDiverged
// and leaves Content unchanged.
func (d *Document) Insert(ctx context.Context, text string, pos int) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.send(ctx, wire.InsertBundle(pos, text, d.sessionID, d.pushReqCount)); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if err := d.content.Insert(pos, text); err != nil {
		d.diverged = true
		return fmt.Errorf("insert: %w: %v", ErrMirrorDiverged, err)
	}
	return nil
}

// Delete removes the inclusive character range [start, end], that is
// end-start+1 characters. Like Insert, a range the local mirror cannot apply
// is reported as ErrMirrorDiverged after the server accepted it.
func (d *Document) Delete(ctx context.Context, start, end int) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.send(ctx, wire.DeleteBundle(start, end, d.sessionID, d.pushReqCount)); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := d.content.Delete(start, end); err != nil {
		d.diverged = true
		return fmt.Errorf("delete: %w: %v", ErrMirrorDiverged, err)
	}
	return nil
}

// send posts one bundle at the current revision and advances the counters
// once the server accepts it.
func (d *Document) send(ctx context.Context, bundle string) error {
	params := d.clientParams().
		Add("includes_info_params", "true").
		Add("cros_files", "false").
		Add("tab", "t.0")

	_, err := d.doer.Do(ctx, &transport.Request{
		Method:         http.MethodPost,
		URL:            d.endpoint("save", params),
		ContentType:    transport.FormContentType,
		Body:           wire.SaveBody(d.rev, bundle),
		RequireSuccess: true,
	})
	if err != nil {
		return err
	}

	d.pushReqCount++
	d.rev++
	logger.Tracef("sdk: saved bundle %s, rev=%d push=%d", bundle, d.rev, d.pushReqCount)
	return nil
}
