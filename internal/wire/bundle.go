package wire

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// InsertBundle serializes a single insert command. text is embedded as-is;
// callers must not pass text that itself needs escaping.
func InsertBundle(pos int, text, sid string, reqID int) string {
	return fmt.Sprintf(`[{"commands":[{"ty":"%s","ibi":%d,"s":"%s"}],"sid":"%s","reqId":%d}]`,
		CodeInsert, pos, text, sid, reqID)
}

// DeleteBundle serializes a single delete command over [start, end].
func DeleteBundle(start, end int, sid string, reqID int) string {
	return fmt.Sprintf(`[{"commands":[{"ty":"%s","si":%d,"ei":%d}],"sid":"%s","reqId":%d}]`,
		CodeDelete, start, end, sid, reqID)
}

// SaveBody builds the form body of a save request.
func SaveBody(rev int, bundle string) string {
	return "rev=" + strconv.Itoa(rev) + "&bundles=" + url.QueryEscape(bundle)
}

// Param is a single query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered query parameter list. Unlike url.Values it keeps the
// order parameters were added in.
type Params []Param

// Add returns p with key=value appended.
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// Encode renders p as a query string.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// Clone returns a copy of p that can be appended to independently.
func (p Params) Clone() Params {
	return append(Params(nil), p...)
}
