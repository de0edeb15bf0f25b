package wire

import (
	"strconv"
	"strings"
)

// Between returns the text between the first occurrence of start and the
// first occurrence of end after it.
func Between(text, start, end string) (string, bool) {
	i := strings.Index(text, start)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// DecodeEscapes resolves the service's backslash escapes. Only \n, \\ and \"
// are decoded; any other backslash sequence is kept verbatim, backslash
// included.
func DecodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		case '"':
			b.WriteByte('"')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// EncodeEscapes is the inverse of DecodeEscapes.
func EncodeEscapes(s string) string {
	return escaper.Replace(s)
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// MaxAckID returns the highest sequence id found in a long-poll response.
//
// Sequence ids are the leading integers of arrays at nesting depth 2, e.g.
// the 7 in [[7,["noop"]]]. Brackets inside quoted strings do not count
// towards the depth, and a backslash-escaped quote does not end a string.
// ok is false when no such id exists.
func MaxAckID(frame string) (id int, ok bool) {
	depth := 0
	inString := false
	for i := 0; i < len(frame); i++ {
		c := frame[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			depth++
			if depth != 2 {
				continue
			}
			if n, found := leadingInt(frame[i+1:]); found && (!ok || n > id) {
				id, ok = n, true
			}
		case ']':
			depth--
		}
	}
	return id, ok
}

// leadingInt parses the token before the next comma as an integer.
func leadingInt(s string) (int, bool) {
	j := strings.IndexByte(s, ',')
	if j < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s[:j]))
	if err != nil {
		return 0, false
	}
	return n, true
}
