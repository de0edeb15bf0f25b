package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bhandras/kixsync/internal/wire"
	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/bhandras/kixsync/pkg/transport"
)

// bindParams are the parameters shared by the bind handshake and the
// long-poll, up to the point where the two diverge.
func (d *Document) bindParams() wire.Params {
	return wire.Params{}.
		Add("id", d.docID).
		Add("sid", d.sessionID).
		Add("includes_info_params", "true").
		Add("cros_files", "false").
		Add("VER", "8").
		Add("tab", "t.0")
}

// ensureBound performs the bind handshake once per session.
func (d *Document) ensureBound(ctx context.Context) error {
	if d.bindID != "" {
		return nil
	}

	params := d.bindParams().
		Add("lsq", "-1").
		Add("u", d.userID).
		Add("vc", "1").
		Add("c", "1").
		Add("w", "1").
		Add("flr", "0").
		Add("gsi", "").
		Add("smv", d.modelVersion).
		Add("smb", genSmb(d.modelVersion)).
		Add("cimpl", "0").
		Add("t", "1").
		Add("zx", d.cfg.Nonce())

	resp, err := d.doer.Do(ctx, &transport.Request{
		Method:         http.MethodPost,
		URL:            d.endpoint("bind", params),
		ContentType:    transport.FormContentType,
		Body:           "count=0",
		RequireSuccess: true,
	})
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}

	id, ok := wire.Between(resp.Body, wire.BindIDStart, wire.BindIDEnd)
	if !ok || id == "" {
		return fmt.Errorf("bind: %w: binding id not found", ErrMalformedResponse)
	}
	d.bindID = id
	logger.Debugf("sdk: bound doc=%s bind=%s", d.docID, d.bindID)
	return nil
}

// pollParams builds the long-poll query for the current cursor.
func (d *Document) pollParams() wire.Params {
	return d.bindParams().
		Add("isq", strconv.FormatInt(d.cfg.Now().UnixMilli(), 10)).
		Add("u", d.userID).
		Add("vc", "1").
		Add("c", "1").
		Add("w", "1").
		Add("flr", "0").
		Add("gsi", "").
		Add("smv", d.modelVersion).
		Add("smb", genSmb(d.modelVersion)).
		Add("cimpl", "0").
		Add("RID", "rpc").
		Add("SID", d.bindID).
		Add("CI", "1").
		Add("TYPE", "xmlhttp").
		Add("t", "1").
		Add("AID", strconv.Itoa(d.eventReqCount)).
		Add("zx", d.cfg.Nonce())
}

// Sync performs one long-poll and applies whatever edits it returns.
//
// A poll that times out, or that returns an empty noop frame, means there
// is nothing new and Sync returns nil without changing any state. Cancelling
// ctx returns the context error.
func (d *Document) Sync(ctx context.Context) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.ensureBound(ctx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	pollCtx, cancel := context.WithTimeout(ctx, d.cfg.PollTimeout)
	defer cancel()

	resp, err := d.doer.Do(pollCtx, &transport.Request{
		Method:         http.MethodGet,
		URL:            d.endpoint("bind", d.pollParams()),
		RequireSuccess: true,
	})
	switch {
	case err != nil && ctx.Err() != nil:
		return fmt.Errorf("sync: %w", ctx.Err())
	case errors.Is(err, transport.ErrTimeout):
		logger.Tracef("sdk: poll timed out, no new events")
		return nil
	case err != nil:
		return fmt.Errorf("sync: %w", err)
	}

	body := resp.Body
	if len(body) < wire.NoopMaxLen && strings.Contains(body, wire.Noop) {
		logger.Tracef("sdk: noop frame")
		return nil
	}

	d.eventReqCount++
	if err := d.applyFrame(body); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// applyFrame advances the cursor and revision from raw, then replays its
// commands against the mirror. The cursor moves even when parsing fails.
func (d *Document) applyFrame(raw string) error {
	logger.Tracef("sdk: frame %q", raw)

	frame, err := wire.ParseFrame(raw)
	if frame.HasAck {
		d.eventReqCount = frame.AckID + 1
	}
	if frame.HasRevision {
		d.rev = frame.Revision
	}

	// Commands parsed before a malformed one are still applied.
	for _, cmd := range frame.Commands {
		switch c := cmd.(type) {
		case wire.Insert:
			if err := d.content.Insert(c.Pos, c.Text); err != nil {
				return fmt.Errorf("%w: remote insert: %v", ErrMalformedResponse, err)
			}
		case wire.Delete:
			if err := d.content.Delete(c.Start, c.End); err != nil {
				return fmt.Errorf("%w: remote delete: %v", ErrMalformedResponse, err)
			}
		}
	}

	if err != nil {
		return err
	}

	logger.Debugf("sdk: applied %d remote commands, rev=%d aid=%d",
		len(frame.Commands), d.rev, d.eventReqCount)
	return nil
}
