package fakedocs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bhandras/kixsync/internal/wire"
	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// savePrefix is the anti-hijacking prefix on save responses.
const savePrefix = ")]}'\n"

type pushedBundle struct {
	Commands []pushedCommand `json:"commands"`
	SID      string          `json:"sid"`
	ReqID    int             `json:"reqId"`
}

type pushedCommand struct {
	Type  string `json:"ty"`
	Pos   int    `json:"ibi"`
	Text  string `json:"s"`
	Start int    `json:"si"`
	End   int    `json:"ei"`
}

// handleLanding opens a new session and renders the edit page.
func (s *Server) handleLanding(c *gin.Context) {
	s.mu.Lock()
	doc, ok := s.docs[c.Param("id")]
	if !ok {
		s.mu.Unlock()
		c.String(http.StatusNotFound, "no such document")
		return
	}
	sess := &session{
		sid:         uuid.NewString(),
		userID:      strings.ReplaceAll(uuid.NewString(), "-", "")[:20],
		notify:      make(chan struct{}),
		nextEventID: 1,
	}
	doc.sessions[sess.sid] = sess
	page := landingPage(doc, sess, s.cfg.ModelVersion)
	s.mu.Unlock()

	logger.Debugf("fakedocs: session %s opened on %s", sess.sid, doc.id)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func landingPage(doc *document, sess *session, smv string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><script nonce=\"x\">")
	fmt.Fprintf(&b, "var k = _createKixApplication('%s', {'docid': '%s', 'oui': '%s', 'kix': true});",
		sess.sid, doc.id, sess.userID)
	fmt.Fprintf(&b, `var f = {"docs-smv":%s,"docs-offline":false};`, smv)
	fmt.Fprintf(&b, "DOCS_warmStartDocumentLoader.startLoad( %d.0, {});", doc.rev)
	fmt.Fprintf(&b, `%s%s"},{"ty":"as","st":"text"}],"revision":%d};`,
		wire.ContentStart, wire.EncodeEscapes(doc.content.String()), doc.rev)
	b.WriteString("</script></head><body></body></html>")
	return b.String()
}

// handleSave applies a pushed bundle and fans it out to every other session.
func (s *Server) handleSave(c *gin.Context) {
	sid := c.Query("sid")
	rev, err := strconv.Atoi(c.PostForm("rev"))
	if err != nil {
		c.String(http.StatusBadRequest, "bad rev")
		return
	}
	var bundles []pushedBundle
	if err := json.Unmarshal([]byte(c.PostForm("bundles")), &bundles); err != nil {
		c.String(http.StatusBadRequest, "bad bundles: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, ok := s.lookup(c, sid)
	if !ok {
		return
	}
	if rev != doc.rev {
		logger.Debugf("fakedocs: session %s pushed against rev %d, head is %d", sid, rev, doc.rev)
	}

	for _, bundle := range bundles {
		cmds := make([]string, 0, len(bundle.Commands))
		for _, cmd := range bundle.Commands {
			encoded, err := applyCommand(doc, cmd)
			if err != nil {
				c.String(http.StatusBadRequest, "%v", err)
				return
			}
			cmds = append(cmds, encoded)
		}
		doc.rev++

		payload := fmt.Sprintf(`["m",{"cem":{"as":["%s",%d]},"cmds":[%s]}]`,
			sid, doc.rev, strings.Join(cmds, ","))
		for other, sess := range doc.sessions {
			if other != sid {
				sess.queue(payload)
			}
		}
	}

	c.String(http.StatusOK, savePrefix+`[["rev",%d]]`, doc.rev)
}

// applyCommand applies cmd to the document and returns its event encoding.
func applyCommand(doc *document, cmd pushedCommand) (string, error) {
	switch cmd.Type {
	case wire.CodeInsert:
		if err := doc.content.Insert(cmd.Pos, cmd.Text); err != nil {
			return "", err
		}
		return fmt.Sprintf(`{"ty":"%s","ibi":%d,"s":"%s"}`,
			wire.CodeInsert, cmd.Pos, wire.EncodeEscapes(cmd.Text)), nil

	case wire.CodeDelete:
		if cmd.Start > cmd.End {
			return "", fmt.Errorf("inverted delete [%d, %d]", cmd.Start, cmd.End)
		}
		if err := doc.content.Delete(cmd.Start, cmd.End); err != nil {
			return "", err
		}
		return fmt.Sprintf(`{"ty":"%s","si":%d,"ei":%d}`,
			wire.CodeDelete, cmd.Start, cmd.End), nil

	default:
		return "", fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// handleBind answers the bind handshake with a fresh binding id.
func (s *Server) handleBind(c *gin.Context) {
	s.mu.Lock()
	_, sess, ok := s.lookup(c, c.Query("sid"))
	if !ok {
		s.mu.Unlock()
		return
	}
	if sess.bindID == "" {
		sess.bindID = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	bindID := sess.bindID
	s.mu.Unlock()

	writeFrame(c, fmt.Sprintf(`[[0,["c","%s","",8,12,30000]]]`, bindID))
}

// handlePoll long-polls for events at or after the AID cursor.
func (s *Server) handlePoll(c *gin.Context) {
	aid, err := strconv.Atoi(c.DefaultQuery("AID", "0"))
	if err != nil {
		c.String(http.StatusBadRequest, "bad AID")
		return
	}

	s.mu.Lock()
	_, sess, ok := s.lookup(c, c.Query("sid"))
	if !ok {
		s.mu.Unlock()
		return
	}
	if sess.bindID == "" || c.Query("SID") != sess.bindID {
		s.mu.Unlock()
		c.String(http.StatusBadRequest, "unknown SID")
		return
	}
	s.mu.Unlock()

	window := time.NewTimer(s.cfg.PollWindow)
	defer window.Stop()

	for {
		s.mu.Lock()
		events := sess.pending(aid)
		notify := sess.notify
		last := sess.nextEventID - 1
		s.mu.Unlock()

		if len(events) > 0 {
			parts := make([]string, len(events))
			for i, ev := range events {
				parts[i] = fmt.Sprintf("[%d,%s]", ev.id, ev.payload)
			}
			writeFrame(c, "["+strings.Join(parts, ",")+"]")
			return
		}

		select {
		case <-notify:
		case <-window.C:
			writeFrame(c, fmt.Sprintf(`[[%d,["%s"]]]`, max(last, 0), wire.Noop))
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// handleLeave drops the session.
func (s *Server) handleLeave(c *gin.Context) {
	s.mu.Lock()
	doc, sess, ok := s.lookup(c, c.Query("sid"))
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(doc.sessions, sess.sid)
	s.mu.Unlock()

	logger.Debugf("fakedocs: session %s left %s", sess.sid, doc.id)
	c.Status(http.StatusOK)
}

// writeFrame writes body with its length prefix.
func writeFrame(c *gin.Context, body string) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8",
		[]byte(strconv.Itoa(len(body))+"\n"+body+"\n"))
}
