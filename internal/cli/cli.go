package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bhandras/kixsync/internal/config"
	"github.com/bhandras/kixsync/internal/version"
	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/bhandras/kixsync/sdk"
)

// closeTimeout bounds the leave request sent when a command finishes.
const closeTimeout = 5 * time.Second

// ErrUsage is returned when a command is invoked with bad arguments.
var ErrUsage = errors.New("usage")

// Run dispatches args[0] to a subcommand.
func Run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		PrintUsage(out)
		return ErrUsage
	}

	switch args[0] {
	case "cat":
		docURL, _, err := docArgs(cfg, args[1:], 0)
		if err != nil {
			return err
		}
		return CatCommand(ctx, cfg, docURL, out)

	case "insert":
		docURL, rest, err := docArgs(cfg, args[1:], 2)
		if err != nil {
			return err
		}
		pos, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("%w: invalid position %q", ErrUsage, rest[0])
		}
		return InsertCommand(ctx, cfg, docURL, pos, rest[1], out)

	case "delete":
		docURL, rest, err := docArgs(cfg, args[1:], 2)
		if err != nil {
			return err
		}
		start, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("%w: invalid start %q", ErrUsage, rest[0])
		}
		end, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("%w: invalid end %q", ErrUsage, rest[1])
		}
		return DeleteCommand(ctx, cfg, docURL, start, end, out)

	case "watch":
		fs := flag.NewFlagSet("watch", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		showQR := fs.Bool("qr", false, "Print the document URL as a QR code")
		interval := fs.Duration("interval", cfg.PollInterval, "Pause between syncs")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		docURL, _, err := docArgs(cfg, fs.Args(), 0)
		if err != nil {
			return err
		}
		return WatchCommand(ctx, cfg, docURL, WatchOptions{
			ShowQR:   *showQR,
			Interval: *interval,
		}, out)

	case "version", "--version", "-v":
		fmt.Fprintf(out, "kixsync %s\n", version.RichVersion())
		return nil

	case "help", "--help", "-h":
		PrintUsage(out)
		return nil

	default:
		PrintUsage(out)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

// docArgs splits args into the document URL and the want positional
// arguments after it. The URL may be omitted when the configuration has one.
func docArgs(cfg *config.Config, args []string, want int) (string, []string, error) {
	switch {
	case len(args) == want+1:
		return args[0], args[1:], nil
	case len(args) == want && cfg.DocURL != "":
		return cfg.DocURL, args, nil
	default:
		return "", nil, fmt.Errorf("%w: expected a document url and %d argument(s)", ErrUsage, want)
	}
}

// PrintUsage writes the command summary to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `kixsync - edit a shared document from the terminal

Usage:
  kixsync cat [url]                      Print the document body
  kixsync insert [url] <pos> <text>      Insert text before 1-based position pos
  kixsync delete [url] <start> <end>     Delete the inclusive range [start, end]
  kixsync watch [--qr] [--interval d] [url]
                                         Follow remote edits until interrupted
  kixsync version                        Print the version

The url may be omitted when KIXSYNC_DOC_URL is set.
`)
}

func open(ctx context.Context, cfg *config.Config, docURL string) (*sdk.Document, error) {
	doc, err := sdk.Open(ctx, docURL, sdk.Config{
		Timeout:     cfg.Timeout,
		PollTimeout: cfg.PollTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	logger.Debugf("Opened %s at rev %d", doc.DocID(), doc.Revision())
	return doc, nil
}

// leave closes doc on a context that survives the caller's cancellation.
func leave(doc *sdk.Document) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := doc.Close(ctx); err != nil && !errors.Is(err, sdk.ErrClosed) {
		logger.Warnf("Failed to leave session: %v", err)
	}
}

// CatCommand prints the current document body.
func CatCommand(ctx context.Context, cfg *config.Config, docURL string, out io.Writer) error {
	doc, err := open(ctx, cfg, docURL)
	if err != nil {
		return err
	}
	defer leave(doc)

	_, err = fmt.Fprintln(out, doc.Content())
	return err
}

// InsertCommand inserts text at pos and prints the resulting body.
func InsertCommand(ctx context.Context, cfg *config.Config, docURL string, pos int, text string, out io.Writer) error {
	doc, err := open(ctx, cfg, docURL)
	if err != nil {
		return err
	}
	defer leave(doc)

	if err := doc.Insert(ctx, text, pos); err != nil {
		return err
	}
	logger.Infof("Inserted %d character(s) at %d, rev %d", len([]rune(text)), pos, doc.Revision())
	_, err = fmt.Fprintln(out, doc.Content())
	return err
}

// DeleteCommand deletes [start, end] and prints the resulting body.
func DeleteCommand(ctx context.Context, cfg *config.Config, docURL string, start, end int, out io.Writer) error {
	doc, err := open(ctx, cfg, docURL)
	if err != nil {
		return err
	}
	defer leave(doc)

	if err := doc.Delete(ctx, start, end); err != nil {
		return err
	}
	logger.Infof("Deleted [%d, %d], rev %d", start, end, doc.Revision())
	_, err = fmt.Fprintln(out, doc.Content())
	return err
}
