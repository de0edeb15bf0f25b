// Package sdk keeps a live local mirror of a remote collaborative document.
//
// A Document is opened against an existing document URL, after which the
// caller can push edits (Insert, Delete), pull other collaborators' edits
// (Sync) and finally leave the session (Close).
//
// Document performs one blocking round trip per call and has no background
// goroutines. It is not safe for concurrent use; a caller that wants
// continuous synchronization drives Sync from its own loop.
package sdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bhandras/kixsync/internal/mirror"
	"github.com/bhandras/kixsync/internal/wire"
	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/bhandras/kixsync/pkg/transport"
)

// Document is one session against a remote document.
type Document struct {
	url    string
	origin string
	cfg    Config
	doer   transport.Doer
	// owned is closed on Close when Open created the transport.
	owned io.Closer

	sessionID    string
	docID        string
	modelVersion string
	userID       string
	// bindID is empty until the first Sync.
	bindID string

	content  *mirror.Mirror
	closed   bool
	diverged bool

	rev           int
	pushReqCount  int
	eventReqCount int
}

// Open fetches the document landing page and starts a session from the
// identifiers and content found in it.
func Open(ctx context.Context, docURL string, cfg Config) (*Document, error) {
	u, err := url.Parse(docURL)
	if err != nil {
		return nil, fmt.Errorf("invalid document url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid document url %q: scheme and host required", docURL)
	}

	cfg = cfg.withDefaults()
	d := &Document{
		url:    docURL,
		origin: u.Scheme + "://" + u.Host,
		cfg:    cfg,
		doer:   cfg.Transport,
	}
	if d.doer == nil {
		headers := transport.DefaultHeaders(u.Host)
		for k, v := range cfg.Headers {
			headers[k] = v
		}
		client := transport.NewClient(transport.Options{
			Timeout: cfg.Timeout,
			Headers: headers,
		})
		d.doer = client
		d.owned = client
	}

	if err := d.bootstrap(ctx); err != nil {
		d.release()
		return nil, err
	}
	return d, nil
}

// bootstrap scrapes the session identifiers from the landing page.
func (d *Document) bootstrap(ctx context.Context) error {
	resp, err := d.doer.Do(ctx, &transport.Request{
		Method:         http.MethodGet,
		URL:            d.url,
		RequireSuccess: true,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	page := resp.Body

	fields := []struct {
		name       string
		start, end string
		dst        *string
	}{
		{name: "session id", start: wire.SessionIDStart, end: wire.SessionIDEnd, dst: &d.sessionID},
		{name: "document id", start: wire.DocIDStart, end: wire.DocIDEnd, dst: &d.docID},
		{name: "model version", start: wire.ModelVersionStart, end: wire.ModelVersionEnd, dst: &d.modelVersion},
		{name: "user id", start: wire.UserIDStart, end: wire.UserIDEnd, dst: &d.userID},
	}
	for _, f := range fields {
		v, ok := wire.Between(page, f.start, f.end)
		if !ok {
			return fmt.Errorf("bootstrap: %w: %s not found", ErrMalformedResponse, f.name)
		}
		*f.dst = v
	}

	rawRev, ok := wire.Between(page, wire.RevisionStart, wire.RevisionEnd)
	if !ok {
		return fmt.Errorf("bootstrap: %w: revision not found", ErrMalformedResponse)
	}
	rev, err := strconv.Atoi(rawRev)
	if err != nil {
		return fmt.Errorf("bootstrap: %w: revision %q: %v", ErrMalformedResponse, rawRev, err)
	}
	d.rev = rev

	content, _ := wire.Between(page, wire.ContentStart, wire.ContentEnd)
	d.content = mirror.New(wire.DecodeEscapes(content))

	logger.Debugf("sdk: opened doc=%s sid=%s rev=%d chars=%d",
		d.docID, d.sessionID, d.rev, d.content.Len())
	return nil
}

// endpoint returns the absolute URL of a document-scoped service endpoint.
func (d *Document) endpoint(name string, params wire.Params) string {
	return d.origin + "/document/d/" + url.PathEscape(d.docID) + "/" + name + "?" + params.Encode()
}

// clientParams are the parameters shared by save and leave requests.
func (d *Document) clientParams() wire.Params {
	return wire.Params{}.
		Add("id", d.docID).
		Add("sid", d.sessionID).
		Add("vc", "1").
		Add("c", "1").
		Add("w", "1").
		Add("flr", "0").
		Add("smv", d.modelVersion).
		Add("smb", genSmb(d.modelVersion))
}

func (d *Document) release() {
	if d.owned == nil {
		return
	}
	if err := d.owned.Close(); err != nil {
		logger.Debugf("sdk: closing transport: %v", err)
	}
	d.owned = nil
}

// Content returns the local mirror of the document body.
func (d *Document) Content() string {
	return d.content.String()
}

// Revision returns the current revision counter.
func (d *Document) Revision() int {
	return d.rev
}

// SessionID returns the session identifier assigned at bootstrap.
func (d *Document) SessionID() string {
	return d.sessionID
}

// DocID returns the document identifier.
func (d *Document) DocID() string {
	return d.docID
}

// UserID returns the user identifier assigned at bootstrap.
func (d *Document) UserID() string {
	return d.userID
}

// ModelVersion returns the server model version token.
func (d *Document) ModelVersion() string {
	return d.modelVersion
}

// BindID returns the binding identifier, or "" before the first Sync.
func (d *Document) BindID() string {
	return d.bindID
}

// PushReqCount returns the number of edit commands sent.
func (d *Document) PushReqCount() int {
	return d.pushReqCount
}

// EventReqCount returns the acknowledgment id the next Sync will send.
func (d *Document) EventReqCount() int {
	return d.eventReqCount
}

// Closed reports whether Close has succeeded.
func (d *Document) Closed() bool {
	return d.closed
}

// Diverged reports whether a local edit failed to apply after the server had
// accepted it. Content is not trustworthy once this is true.
func (d *Document) Diverged() bool {
	return d.diverged
}
