package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when an expected marker or field is missing or
// does not parse.
var ErrMalformed = errors.New("malformed response")

// Command is an edit carried by a bundle or an event frame.
type Command interface {
	Code() string
}

// Insert places Text before the character at 1-based Pos.
type Insert struct {
	Pos  int
	Text string
}

// Code returns CodeInsert.
func (Insert) Code() string { return CodeInsert }

// Delete removes the inclusive 1-based range [Start, End].
type Delete struct {
	Start int
	End   int
}

// Code returns CodeDelete.
func (Delete) Code() string { return CodeDelete }

// EventFrame is the parsed content of one long-poll response.
type EventFrame struct {
	// AckID is the highest sequence id in the frame, valid when HasAck.
	AckID  int
	HasAck bool

	// Revision is the textually last revision update, valid when HasRevision.
	Revision    int
	HasRevision bool

	// Commands are the edits in stream order.
	Commands []Command
}

// ParseFrame scans a long-poll response.
//
// The acknowledgment id is always extracted first, so the returned frame
// carries it even when err is non-nil. Revision fields reflect the last
// update parsed before any failure, and Commands holds every command parsed
// before the first malformed one.
func ParseFrame(raw string) (EventFrame, error) {
	var f EventFrame
	f.AckID, f.HasAck = MaxAckID(raw)

	for window := raw; ; {
		i := strings.Index(window, RevisionUpdate)
		if i < 0 {
			break
		}
		tok, ok := Between(window[i:], ",", "]")
		if !ok {
			return f, fmt.Errorf("%w: revision update without value", ErrMalformed)
		}
		rev, err := strconv.Atoi(tok)
		if err != nil {
			return f, fmt.Errorf("%w: revision %q: %v", ErrMalformed, tok, err)
		}
		f.Revision, f.HasRevision = rev, true
		window = window[i+len(RevisionUpdate):]
	}

	cmds, err := parseCommands(raw)
	f.Commands = cmds
	return f, err
}

// parseCommands replays every command-type marker in stream order. Unknown
// codes are skipped. On error the commands parsed so far are returned with it.
//
// The insert text ends at the next double quote after the field start. An
// escaped quote inside the text therefore truncates the field; the service
// has not been observed to send one.
func parseCommands(raw string) ([]Command, error) {
	var cmds []Command
	window := raw
	for {
		i := strings.Index(window, CommandType)
		if i < 0 {
			return cmds, nil
		}
		window = window[i+len(CommandType):]

		end := strings.IndexByte(window, '"')
		if end < 0 {
			return cmds, fmt.Errorf("%w: unterminated command code", ErrMalformed)
		}

		switch window[:end] {
		case CodeInsert:
			pos, err := intField(window, InsertPosField, ",")
			if err != nil {
				return cmds, err
			}
			start := strings.Index(window, InsertTextField)
			if start < 0 {
				return cmds, fmt.Errorf("%w: insert without text", ErrMalformed)
			}
			start += len(InsertTextField)
			n := strings.IndexByte(window[start:], '"')
			if n < 0 {
				return cmds, fmt.Errorf("%w: unterminated insert text", ErrMalformed)
			}
			cmds = append(cmds, Insert{Pos: pos, Text: DecodeEscapes(window[start : start+n])})

		case CodeDelete:
			si, err := intField(window, DeleteStartField, ",")
			if err != nil {
				return cmds, err
			}
			ei, err := intField(window, DeleteEndField, "}")
			if err != nil {
				return cmds, err
			}
			cmds = append(cmds, Delete{Start: si, End: ei})
		}
	}
}

func intField(window, field, end string) (int, error) {
	tok, ok := Between(window, field, end)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformed, field)
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrMalformed, field, tok, err)
	}
	return n, nil
}
