package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bhandras/kixsync/internal/wire"
	"github.com/bhandras/kixsync/pkg/transport"
	"github.com/stretchr/testify/require"
)

const testDocURL = "https://docs.example.com/document/d/doc1/edit"

// fakeDoer answers requests through per-endpoint handlers and records every
// request it sees.
type fakeDoer struct {
	landing string
	save    func(req *transport.Request) (*transport.Response, error)
	bind    func(req *transport.Request) (*transport.Response, error)
	poll    func(req *transport.Request) (*transport.Response, error)
	leave   func(req *transport.Request) (*transport.Response, error)

	requests []*transport.Request
}

func okResp(body string) (*transport.Response, error) {
	return &transport.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func (f *fakeDoer) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.requests = append(f.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, transport.Classify(req.Op(), err)
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	var h func(req *transport.Request) (*transport.Response, error)
	switch {
	case req.URL == testDocURL:
		return okResp(f.landing)
	case strings.HasSuffix(u.Path, "/save"):
		h = f.save
	case strings.HasSuffix(u.Path, "/bind") && req.Method == http.MethodPost:
		h = f.bind
	case strings.HasSuffix(u.Path, "/bind"):
		h = f.poll
	case strings.HasSuffix(u.Path, "/leave"):
		h = f.leave
	}
	if h == nil {
		return okResp("")
	}
	return h(req)
}

// count returns the number of recorded requests whose path ends in suffix.
func (f *fakeDoer) count(method, suffix string) int {
	n := 0
	for _, r := range f.requests {
		u, _ := url.Parse(r.URL)
		if r.Method == method && strings.HasSuffix(u.Path, suffix) {
			n++
		}
	}
	return n
}

func landingPage(sid, docID, smv string, rev int, uid, content string) string {
	var b strings.Builder
	b.WriteString("<html><script>")
	fmt.Fprintf(&b, "var a = _createKixApplication('%s', {'docid': '%s', 'oui': '%s'});", sid, docID, uid)
	fmt.Fprintf(&b, `var c = {"docs-smv":%s,"docs-x":1};`, smv)
	fmt.Fprintf(&b, "DOCS_warmStartDocumentLoader.startLoad( %d.0);", rev)
	if content != "" {
		fmt.Fprintf(&b, `%s%s"},{"ty":"as"}]};`, wire.ContentStart, wire.EncodeEscapes(content))
	}
	b.WriteString("</script></html>")
	return b.String()
}

func fixedConfig(doer transport.Doer) Config {
	return Config{
		Transport:   doer,
		PollTimeout: time.Second,
		Nonce:       func() string { return "abcdefghijkl" },
		Now:         func() time.Time { return time.UnixMilli(1700000000123) },
	}
}

func openTest(t *testing.T, doer *fakeDoer) *Document {
	t.Helper()
	d, err := Open(context.Background(), testDocURL, fixedConfig(doer))
	require.NoError(t, err)
	return d
}

func bindOK(*transport.Request) (*transport.Response, error) {
	return okResp("51\n[[0,[\"c\",\"BIG-1\",\"\",8,12,30000]]]\n")
}

func query(t *testing.T, req *transport.Request) url.Values {
	t.Helper()
	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	return u.Query()
}
