// Package fakedocs is an in-process stand-in for the document service. It
// speaks the same session protocol as the real service closely enough for
// the sdk to bootstrap, push edits, bind and long-poll against it.
package fakedocs

import (
	"net/http"
	"sync"
	"time"

	"github.com/bhandras/kixsync/internal/mirror"
	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	// defaultPollWindow is how long a long-poll waits for events before
	// answering with a noop frame.
	defaultPollWindow = 20 * time.Second
	// defaultModelVersion is the docs-smv value advertised on landing pages.
	defaultModelVersion = "2"
)

// Config controls the fake service.
type Config struct {
	// PollWindow bounds a long-poll. Zero means 20s.
	PollWindow time.Duration
	// ModelVersion is the advertised server model version.
	ModelVersion string
	// Debug enables per-request logging.
	Debug bool
}

// Server holds every document and session of the fake service.
type Server struct {
	cfg    Config
	router *gin.Engine

	mu   sync.Mutex
	docs map[string]*document
}

type document struct {
	id       string
	content  *mirror.Mirror
	rev      int
	sessions map[string]*session
}

type session struct {
	sid    string
	userID string
	bindID string

	// nextEventID is the id of the next queued event. Id 0 is the bind reply.
	nextEventID int
	events      []event
	// notify is closed and replaced whenever an event is queued.
	notify chan struct{}
}

type event struct {
	id      int
	payload string
}

// New creates a Server with no documents.
func New(cfg Config) *Server {
	if cfg.PollWindow <= 0 {
		cfg.PollWindow = defaultPollWindow
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = defaultModelVersion
	}
	s := &Server{
		cfg:  cfg,
		docs: make(map[string]*document),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Debug {
		router.Use(loggingMiddleware())
	}
	docs := router.Group("/document/d/:id")
	{
		docs.GET("/edit", s.handleLanding)
		docs.POST("/save", s.handleSave)
		docs.POST("/bind", s.handleBind)
		docs.GET("/bind", s.handlePoll)
		docs.GET("/leave", s.handleLeave)
	}
	s.router = router
	return s
}

// Handler returns the HTTP handler serving the protocol.
func (s *Server) Handler() http.Handler {
	return s.router
}

// CreateDocument adds (or replaces) a document with the given content at
// revision 1.
func (s *Server) CreateDocument(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = &document{
		id:       id,
		content:  mirror.New(content),
		rev:      1,
		sessions: make(map[string]*session),
	}
}

// Document returns the authoritative content and revision of a document.
func (s *Server) Document(id string) (content string, rev int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return "", 0, false
	}
	return doc.content.String(), doc.rev, true
}

// Sessions returns the number of open sessions on a document.
func (s *Server) Sessions(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return 0
	}
	return len(doc.sessions)
}

// lookup returns the document and session addressed by c. It writes the
// error response itself and returns ok=false on failure. s.mu must be held.
func (s *Server) lookup(c *gin.Context, sid string) (*document, *session, bool) {
	doc, ok := s.docs[c.Param("id")]
	if !ok {
		c.String(http.StatusNotFound, "no such document")
		return nil, nil, false
	}
	sess, ok := doc.sessions[sid]
	if !ok {
		c.String(http.StatusBadRequest, "unknown session")
		return nil, nil, false
	}
	return doc, sess, true
}

// queue appends an event to sess and wakes any pending poll. s.mu must be
// held.
func (sess *session) queue(payload string) {
	sess.events = append(sess.events, event{id: sess.nextEventID, payload: payload})
	sess.nextEventID++
	close(sess.notify)
	sess.notify = make(chan struct{})
}

// pending drops events below aid and returns the rest. s.mu must be held.
func (sess *session) pending(aid int) []event {
	aid = max(aid, 1)
	keep := sess.events[:0]
	for _, ev := range sess.events {
		if ev.id >= aid {
			keep = append(keep, ev)
		}
	}
	sess.events = keep
	return append([]event(nil), keep...)
}

// loggingMiddleware logs one line per request.
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		logger.Debugf("fakedocs: [%s] %s - %d (%v)",
			c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
