package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bhandras/kixsync/internal/config"
	"github.com/bhandras/kixsync/internal/fakedocs"
	"github.com/bhandras/kixsync/internal/wire"
	"github.com/bhandras/kixsync/sdk"
	"github.com/stretchr/testify/require"
)

func startService(t *testing.T, content string) (*fakedocs.Server, string) {
	t.Helper()
	srv := fakedocs.New(fakedocs.Config{PollWindow: 100 * time.Millisecond})
	srv.CreateDocument("doc", content)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL + "/document/d/doc/edit"
}

func testConfig() *config.Config {
	return &config.Config{
		Timeout:      5 * time.Second,
		PollTimeout:  2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunEditCommands(t *testing.T) {
	srv, docURL := startService(t, "hello")
	ctx := context.Background()
	cfg := testConfig()

	var out bytes.Buffer
	require.NoError(t, Run(ctx, cfg, []string{"cat", docURL}, &out))
	require.Equal(t, "hello\n", out.String())

	out.Reset()
	require.NoError(t, Run(ctx, cfg, []string{"insert", docURL, "6", ", world"}, &out))
	require.Equal(t, "hello, world\n", out.String())

	out.Reset()
	require.NoError(t, Run(ctx, cfg, []string{"delete", docURL, "1", "7"}, &out))
	require.Equal(t, "world\n", out.String())

	content, rev, ok := srv.Document("doc")
	require.True(t, ok)
	require.Equal(t, "world", content)
	require.Equal(t, 3, rev)

	// Every command leaves its session.
	require.Zero(t, srv.Sessions("doc"))
}

func TestRunUsesConfiguredURL(t *testing.T) {
	_, docURL := startService(t, "abc")
	cfg := testConfig()
	cfg.DocURL = docURL

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), cfg, []string{"cat"}, &out))
	require.Equal(t, "abc\n", out.String())
}

func TestRunUsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "cat without url", args: []string{"cat"}},
		{name: "insert missing text", args: []string{"insert", "http://x/document/d/a/edit", "1"}},
		{name: "insert bad position", args: []string{"insert", "http://x/document/d/a/edit", "one", "x"}},
		{name: "delete bad end", args: []string{"delete", "http://x/document/d/a/edit", "1", "z"}},
		{name: "watch bad flag", args: []string{"watch", "--nope", "http://x/document/d/a/edit"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			err := Run(context.Background(), testConfig(), tt.args, &out)
			require.ErrorIs(t, err, ErrUsage)
		})
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), testConfig(), []string{"version"}, &out))
	require.True(t, strings.HasPrefix(out.String(), "kixsync "))
}

func TestWatchFollowsRemoteEdits(t *testing.T) {
	srv, docURL := startService(t, "one")
	cfg := testConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- WatchCommand(ctx, cfg, docURL, WatchOptions{ShowQR: true, Interval: 10 * time.Millisecond}, out)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "one")
	}, 2*time.Second, 10*time.Millisecond)

	// Wait until the watcher has opened its session before editing.
	require.Eventually(t, func() bool {
		return srv.Sessions("doc") == 1
	}, 2*time.Second, 10*time.Millisecond)

	editor, err := sdk.Open(context.Background(), docURL, sdk.Config{})
	require.NoError(t, err)
	require.NoError(t, editor.Insert(context.Background(), " two", 4))
	require.NoError(t, editor.Close(context.Background()))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "one two")
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
	require.Zero(t, srv.Sessions("doc"))
	require.NotContains(t, out.String(), ansiClearScreen)
}

// scriptedService serves a landing page whose content changes per session,
// and answers the first long-poll with a frame that cannot be read.
type scriptedService struct {
	landings atomic.Int32
	polls    atomic.Int32
	leaves   atomic.Int32
}

func (s *scriptedService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/edit"):
		n := s.landings.Add(1)
		content := "stale"
		if n > 1 {
			content = "fresh"
		}
		fmt.Fprintf(w, "_createKixApplication('sid%d', {'docid': 'doc', 'oui': 'u'});", n)
		fmt.Fprint(w, `{"docs-smv":1,"x":1};DOCS_warmStartDocumentLoader.startLoad( 3.0);`)
		fmt.Fprintf(w, `%s%s"},{"ty":"as"}]};`, wire.ContentStart, content)

	case strings.HasSuffix(r.URL.Path, "/bind") && r.Method == http.MethodPost:
		fmt.Fprint(w, `[[0,["c","BIND","",8,12,30000]]]`)

	case strings.HasSuffix(r.URL.Path, "/bind"):
		if s.polls.Add(1) == 1 {
			fmt.Fprint(w, `[[1,[{"ty":"is","ibi":1,"s":"X"},{"ty":"is","ibi":oops,"s":"Y"}]]]`)
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-time.After(20 * time.Millisecond):
		}
		fmt.Fprint(w, `[[0,["noop"]]]`)

	case strings.HasSuffix(r.URL.Path, "/leave"):
		s.leaves.Add(1)
	}
}

func TestWatchReopensAfterUnreadableFrame(t *testing.T) {
	svc := &scriptedService{}
	ts := httptest.NewServer(svc)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- WatchCommand(ctx, testConfig(), ts.URL+"/document/d/doc/edit",
			WatchOptions{Interval: 10 * time.Millisecond}, out)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "fresh")
	}, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, int32(2), svc.landings.Load())
	require.Equal(t, int32(1), svc.leaves.Load())
	require.NotContains(t, out.String(), "Xstale")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
	require.Equal(t, int32(2), svc.leaves.Load())
}
