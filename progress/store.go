package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// DefaultFileName is the progress file created in the working directory.
const DefaultFileName = ".onboard_state.json"

// ErrCorrupt is returned by decode when the progress file cannot be parsed.
var ErrCorrupt = errors.New("progress file is corrupt")

// Store tracks per-ticket, per-environment onboarding progress and flushes
// the whole document to disk after every mutation.
//
// A Store is the only writer of progress records. It is safe for concurrent
// use, although the onboarding flow itself is strictly sequential.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
	write  func(path string, data []byte) error

	mu  sync.Mutex
	doc *Document
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load and flush diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithWriter overrides how the document is written to disk.
func WithWriter(write func(path string, data []byte) error) Option {
	return func(s *Store) {
		s.write = write
	}
}

// Open creates a Store backed by path and loads any existing progress.
// Open never fails: an unreadable file yields an empty store.
func Open(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		write:  atomicWrite,
		doc:    newDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Load()
	return s
}

func atomicWrite(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory state with the file contents. A missing file
// is an empty state; a corrupt file is logged and also yields an empty state.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = newDocument()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("could not read progress file, starting fresh", "path", s.path, "error", err)
		}
		return
	}

	doc, err := decode(data, s.logger)
	if err != nil {
		s.logger.Warn("could not parse progress file, starting fresh", "path", s.path, "error", err)
		return
	}
	s.doc = doc
	s.logger.Debug("loaded progress", "path", s.path, "tickets", len(doc.Tickets))
}

// flush persists the document. Failures are logged; the in-memory state
// stays authoritative for the rest of the run. Caller holds s.mu.
func (s *Store) flush() {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.logger.Warn("could not encode progress", "error", err)
		return
	}
	if err := s.write(s.path, data); err != nil {
		s.logger.Warn("could not save progress", "path", s.path, "error", err)
	}
}

// ticket returns the record for key, creating it on first reference.
func (s *Store) ticket(key string) *Ticket {
	t, ok := s.doc.Tickets[key]
	if !ok {
		t = newTicket(s.now())
		s.doc.Tickets[key] = t
	}
	return t
}

// env returns the record for (key, name), creating it on first reference.
func (s *Store) env(key, name string) *Environment {
	t := s.ticket(key)
	e, ok := t.Environments[name]
	if !ok {
		e = newEnvironment()
		t.Environments[name] = e
	}
	return e
}

// lookup returns an existing environment record without creating one.
func (s *Store) lookup(key, name string) *Environment {
	t, ok := s.doc.Tickets[key]
	if !ok {
		return nil
	}
	return t.Environments[name]
}

// =============================================================================
// Ticket-level secret
// =============================================================================

// TicketSecret returns the ticket-scoped monitoring password, if one exists.
func (s *Store) TicketSecret(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.doc.Tickets[key]
	if !ok || t.MonitorPassword == nil || *t.MonitorPassword == "" {
		return "", false
	}
	return *t.MonitorPassword, true
}

// SetTicketSecret stores the ticket-scoped monitoring password.
func (s *Store) SetTicketSecret(key, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticket(key).MonitorPassword = &secret
	s.flush()
}

// StartedAt returns when the ticket was first referenced.
func (s *Store) StartedAt(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.doc.Tickets[key]
	if !ok {
		return time.Time{}, false
	}
	return t.StartedAt, true
}

// =============================================================================
// Steps
// =============================================================================

// IsStepDone reports whether step has been recorded for (key, env).
func (s *Store) IsStepDone(key, env string, step int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key, env)
	return e != nil && e.hasStep(step)
}

// MarkStepDone records step for (key, env). Recording a step twice is a
// no-op apart from the flush. Steps are never removed.
func (s *Store) MarkStepDone(key, env string, step int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.env(key, env)
	if !e.hasStep(step) {
		e.StepsDone = append(e.StepsDone, step)
	}
	s.flush()
	s.logger.Debug("step done", "ticket", key, "env", env, "step", step)
}

// StepsDone returns the recorded steps for (key, env) in ascending order.
func (s *Store) StepsDone(key, env string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key, env)
	if e == nil {
		return nil
	}
	steps := append([]int(nil), e.StepsDone...)
	sort.Ints(steps)
	return steps
}

// =============================================================================
// Cached values
// =============================================================================

// CachedValue decodes the cached value stored under name into dst and
// reports whether it was present and readable.
func (s *Store) CachedValue(key, env, name string, dst any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key, env)
	if e == nil {
		return false
	}
	raw, ok := e.Cache[name]
	if !ok || !present(raw) {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("ignoring unreadable cached value", "ticket", key, "env", env, "name", name, "error", err)
		return false
	}
	return true
}

// SetCachedValue stores value under name for (key, env).
func (s *Store) SetCachedValue(key, env, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.env(key, env).Cache[name] = raw
	s.flush()
	return nil
}

// =============================================================================
// Completion
// =============================================================================

// IsEnvironmentComplete reports whether (key, env) has been marked complete.
func (s *Store) IsEnvironmentComplete(key, env string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key, env)
	return e != nil && e.Completed
}

// MarkEnvironmentComplete marks (key, env) complete and stamps the time.
func (s *Store) MarkEnvironmentComplete(key, env string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.env(key, env)
	now := s.now()
	e.Completed = true
	e.CompletedAt = &now
	s.flush()
	s.logger.Debug("environment complete", "ticket", key, "env", env)
}

// IsTicketComplete reports whether every environment in required is
// complete. It is derived from the environment records; an empty required
// list is never complete.
func (s *Store) IsTicketComplete(key string, required []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(required) == 0 {
		return false
	}
	for _, env := range required {
		e := s.lookup(key, env)
		if e == nil || !e.Completed {
			return false
		}
	}
	return true
}

// IsTicketFinalized reports whether MarkTicketComplete was recorded for key.
// Environments can all be complete while this is still false when the
// completion comment or the final write did not happen.
func (s *Store) IsTicketFinalized(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.doc.Tickets[key]
	return ok && t != nil && t.Completed
}

// MarkTicketComplete records that the ticket was finalized.
func (s *Store) MarkTicketComplete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ticket(key)
	now := s.now()
	t.Completed = true
	t.CompletedAt = &now
	s.flush()
	s.logger.Debug("ticket complete", "ticket", key)
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s.doc)
	if err != nil {
		return newDocument()
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return newDocument()
	}
	doc.fill()
	return &doc
}
