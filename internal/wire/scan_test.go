package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBetween(t *testing.T) {
	t.Parallel()

	page := `x _createKixApplication('sid-1', 'a') _createKixApplication('sid-2', 'b')`
	got, ok := Between(page, SessionIDStart, SessionIDEnd)
	require.True(t, ok)
	require.Equal(t, "sid-1", got)

	_, ok = Between(page, "missing", "'")
	require.False(t, ok)

	_, ok = Between("'docid': 'unterminated", DocIDStart, "!")
	require.False(t, ok)
}

func TestDecodeEscapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "newline", in: `a\nb`, want: "a\nb"},
		{name: "backslash", in: `a\\b`, want: `a\b`},
		{name: "quote", in: `say \"hi\"`, want: `say "hi"`},
		{name: "tab passes through", in: `a\tb`, want: `a\tb`},
		{name: "unicode escape passes through", in: `\u003c`, want: `\u003c`},
		{name: "trailing backslash", in: `end\`, want: `end\`},
		{name: "escaped backslash before n", in: `\\n`, want: `\n`},
		{name: "multibyte", in: `日\n本`, want: "日\n本"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, DecodeEscapes(tt.in))
		})
	}
}

func TestEncodeEscapesRoundTrip(t *testing.T) {
	t.Parallel()

	in := "line1\nsaid \"x\" \\ done"
	require.Equal(t, `line1\nsaid \"x\" \\ done`, EncodeEscapes(in))
	require.Equal(t, in, DecodeEscapes(EncodeEscapes(in)))
}

func TestMaxAckID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		frame  string
		want   int
		wantOK bool
	}{
		{name: "single", frame: `[[7,["noop"]]]`, want: 7, wantOK: true},
		{name: "length prefixed", frame: "16\n[[7,[\"noop\"]]]\n", want: 7, wantOK: true},
		{name: "several items", frame: `[[3,["a"]],[4,["b"]],[5,["c"]]]`, want: 5, wantOK: true},
		{name: "several chunks", frame: "[[8,[\"a\"]]]\n[[9,[\"b\"]]]", want: 9, wantOK: true},
		{name: "brackets in strings", frame: `[[2,["[[99,", "]]"]],[3,["x]"]]]`, want: 3, wantOK: true},
		{name: "escaped quote in string", frame: `[[2,["a\"[[50,"]],[4,[]]]`, want: 4, wantOK: true},
		{name: "deeper arrays ignored", frame: `[[1,[[42,1]]]]`, want: 1, wantOK: true},
		{name: "none", frame: `["noop"]`, wantOK: false},
		{name: "non numeric", frame: `[["noop"]]`, wantOK: false},
		{name: "empty", frame: ``, wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := MaxAckID(tt.frame)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBundles(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		`[{"commands":[{"ty":"is","ibi":3,"s":"hey"}],"sid":"s1","reqId":0}]`,
		InsertBundle(3, "hey", "s1", 0))
	require.Equal(t,
		`[{"commands":[{"ty":"ds","si":1,"ei":2}],"sid":"s1","reqId":4}]`,
		DeleteBundle(1, 2, "s1", 4))

	body := SaveBody(12, `[{"a":1}]`)
	require.Equal(t, "rev=12&bundles=%5B%7B%22a%22%3A1%7D%5D", body)
}

func TestParamsKeepOrder(t *testing.T) {
	t.Parallel()

	p := Params{}.Add("id", "d").Add("sid", "s").Add("smb", "[1, oAM=]").Add("gsi", "")
	require.Equal(t, "id=d&sid=s&smb=%5B1%2C+oAM%3D%5D&gsi=", p.Encode())

	q := p.Clone().Add("zx", "abc")
	require.Len(t, p, 4)
	require.Len(t, q, 5)
}
