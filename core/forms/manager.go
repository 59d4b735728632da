package forms

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
)

var (
	// errors
	ErrFormNotFound     = errors.New("form not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrIdentityRequired = errors.New("form requires an authenticated teacher")
)

// Session is one open form: its selector engine lives and dies with it.
type Session struct {
	ID        string
	Form      Definition
	Identity  core.Identity
	Engine    *cascade.Engine
	CreatedAt time.Time // UTC

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionView is the JSON representation of a Session.
type SessionView struct {
	ID        string                   `json:"id"`
	Form      string                   `json:"form"`
	Levels    []cascade.SelectionState `json:"levels"`
	CreatedAt time.Time                `json:"created_at"`
}

func (s *Session) View() SessionView {
	return SessionView{
		ID:        s.ID,
		Form:      s.Form.Name,
		Levels:    s.Engine.States(),
		CreatedAt: s.CreatedAt,
	}
}

type ManagerOptions struct {
	// EagerRoot loads root options when a session opens, unless the form has a lazy root.
	EagerRoot bool
	// TTL is how long a session may stay idle before Expire closes it. Zero disables expiry.
	TTL    time.Duration
	Logger core.Logger
}

// Manager owns the open form sessions.
type Manager struct {
	opts   ManagerOptions
	graphs map[string]*cascade.Graph
	now    func() time.Time // mockable

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager binds every form definition to `src`. A form whose levels `src` cannot serve
// is a *cascade.ConfigurationError.
func NewManager(src cascade.Source, opts ManagerOptions) (*Manager, error) {
	m := &Manager{
		opts:     opts,
		graphs:   make(map[string]*cascade.Graph, len(Definitions)),
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*Session),
	}
	for _, def := range Definitions {
		g, err := def.Graph(src)
		if err != nil {
			return nil, errors.Wrapf(err, "form %q", def.Name)
		}
		m.graphs[def.Name] = g
	}
	return m, nil
}

// Open starts a session of `form`. The identity is read once here: identity-rooted forms
// seed their root level with it.
func (m *Manager) Open(form string, identity core.Identity) (*Session, error) {
	def, ok := Lookup(form)
	if !ok {
		return nil, errors.Wrapf(ErrFormNotFound, "%q", form)
	}

	eopts := cascade.EngineOptions{
		EagerRoot: m.opts.EagerRoot && !def.LazyRoot,
		Logger:    m.opts.Logger,
	}
	if def.IdentityRoot {
		if identity.ID == "" {
			return nil, ErrIdentityRequired
		}
		eopts.RootValue = identity.ID
	}

	now := m.now()
	sess := &Session{
		ID:        uuid.New().String(),
		Form:      def,
		Identity:  identity,
		Engine:    cascade.NewEngine(m.graphs[def.Name], eopts),
		CreatedAt: now,
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess, nil
}

// Get returns the session `id` and marks it as active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(m.now())
	return sess, nil
}

// Close ends the session `id`, dropping any fetch still in flight.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.Engine.Close()
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire closes the sessions idle for longer than the TTL and returns how many were closed.
func (m *Manager) Expire() int {
	if m.opts.TTL <= 0 {
		return 0
	}
	now := m.now()

	var expired []*Session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.idleSince(now) > m.opts.TTL {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.Engine.Close()
	}
	return len(expired)
}

// Sweep calls Expire every `interval` until ctx is done.
func (m *Manager) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Expire(); n > 0 && m.opts.Logger != nil {
				m.opts.Logger.Debug("forms: expired idle sessions", map[string]interface{}{"count": n})
			}
		}
	}
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Engine.Close()
	}
}
