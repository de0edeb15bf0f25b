// Package wire scans and builds the document service's session protocol.
//
// The service's payloads are not well-formed JSON once framed (length
// prefixes, concatenated arrays, repeated keys), so everything here works on
// raw text with the fixed markers below rather than a general decoder.
package wire

// Landing page markers. Each value sits between a start and an end marker;
// the first occurrence wins.
const (
	SessionIDStart = "_createKixApplication('"
	SessionIDEnd   = "',"

	DocIDStart = "'docid': '"
	DocIDEnd   = "'"

	ModelVersionStart = `"docs-smv":`
	ModelVersionEnd   = ","

	RevisionStart = "DOCS_warmStartDocumentLoader.startLoad( "
	RevisionEnd   = "."

	UserIDStart = "'oui': '"
	UserIDEnd   = "'"

	ContentStart = `DOCS_modelChunk = {"chunk":[{"ty":"is","ibi":1,"s":"`
	ContentEnd   = `"},`
)

// Bind handshake marker: the binding id is the quoted value after it.
const (
	BindIDStart = `"c","`
	BindIDEnd   = `"`
)

// Event stream markers.
const (
	// RevisionUpdate introduces a revision update; the revision is the token
	// between the next comma and the next closing bracket.
	RevisionUpdate = `"cem":{"as":[`

	// CommandType precedes the two-letter command code.
	CommandType = `ty":"`

	InsertPosField   = `"ibi":`
	InsertTextField  = `"s":"`
	DeleteStartField = `"si":`
	DeleteEndField   = `"ei":`

	// Noop marks an empty long-poll frame.
	Noop = "noop"

	// NoopMaxLen is the length below which a frame containing Noop is
	// treated as carrying no events.
	NoopMaxLen = 25
)

// Command codes shared by push bundles and event frames.
const (
	CodeInsert = "is"
	CodeDelete = "ds"
)
