package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bhandras/kixsync/internal/config"
	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/bhandras/kixsync/sdk"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/term"
)

const (
	ansiClearScreen = "\x1b[2J"
	ansiCursorHome  = "\x1b[H"
)

// WatchOptions tunes WatchCommand.
type WatchOptions struct {
	// ShowQR prints the document URL as a QR code before watching.
	ShowQR bool
	// Interval is the pause between syncs.
	Interval time.Duration
}

// WatchCommand follows a document until ctx is cancelled, printing the body
// every time a sync changes it. A frame that cannot be read leaves the local
// copy suspect, so the document is reopened from the service.
func WatchCommand(ctx context.Context, cfg *config.Config, docURL string, opts WatchOptions, out io.Writer) error {
	doc, err := open(ctx, cfg, docURL)
	if err != nil {
		return err
	}

	if opts.ShowQR {
		printQR(out, docURL)
	}

	w := &watcher{doc: doc, out: out, tty: isTerminal(out)}
	defer func() { leave(w.doc) }()
	w.render()

	for {
		err := w.doc.Sync(ctx)
		switch {
		case ctx.Err() != nil:
			logger.Debugf("Watch stopped at rev %d", w.doc.Revision())
			return nil
		case errors.Is(err, sdk.ErrMalformedResponse):
			logger.Warnf("Unreadable frame, reopening document: %v", err)
			if err := w.reopen(ctx, cfg, docURL); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		case err != nil:
			return err
		}
		if w.doc.Content() != w.last {
			w.render()
		}

		if opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.Interval):
			}
		}
	}
}

type watcher struct {
	doc  *sdk.Document
	out  io.Writer
	tty  bool
	last string
}

// reopen replaces the watched session with a freshly bootstrapped one.
func (w *watcher) reopen(ctx context.Context, cfg *config.Config, docURL string) error {
	doc, err := open(ctx, cfg, docURL)
	if err != nil {
		return err
	}
	leave(w.doc)
	w.doc = doc
	return nil
}

func (w *watcher) render() {
	w.last = w.doc.Content()
	if w.tty {
		_, _ = io.WriteString(w.out, ansiClearScreen+ansiCursorHome)
	}
	fmt.Fprintf(w.out, "--- %s rev %d ---\n%s\n", w.doc.DocID(), w.doc.Revision(), w.last)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printQR(out io.Writer, data string) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		logger.Warnf("Failed to generate QR code: %v", err)
		fmt.Fprintln(out, data)
		return
	}
	fmt.Fprintln(out, qr.ToSmallString(false))
}
