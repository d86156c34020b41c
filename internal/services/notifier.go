package services

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/earnx/internal/shared"
)

// EventKind identifies a session lifecycle event.
type EventKind int

const (
	// LoginSucceeded carries the new session.
	LoginSucceeded EventKind = iota
	// SessionExpired means the session was discarded and the shell must show the login flow.
	SessionExpired
	// LoggedOut means the operator ended the session.
	LoggedOut
)

func (k EventKind) String() string {
	switch k {
	case LoginSucceeded:
		return "login_succeeded"
	case SessionExpired:
		return "session_expired"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Event is a session lifecycle notification.
type Event struct {
	Kind    EventKind
	Session *Session // set for LoginSucceeded
	Reason  string   // set for SessionExpired
}

// Observer receives lifecycle events. Notify is called synchronously from the goroutine that
// raised the event and must not block.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// Notifier tracks the shell's current session and broadcasts lifecycle changes.
//
// Session expiry is reported at most once per session, however many in-flight operations observe it,
// and only for the session that is current when it arrives.
type Notifier struct {
	logger *log.Logger

	mu        sync.Mutex
	current   *Session
	observers []Observer
}

// NewNotifier creates a Notifier with no session.
func NewNotifier(logger *log.Logger) *Notifier {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Notifier{logger: logger}
}

// Subscribe registers o for every later event.
func (n *Notifier) Subscribe(o Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, o)
}

// Current returns the live session or nil.
func (n *Notifier) Current() *Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// LoginSucceeded installs s as the current session.
func (n *Notifier) LoginSucceeded(s *Session) {
	n.mu.Lock()
	n.current = s
	n.mu.Unlock()

	n.logger.Info("session started", "environment", s.Environment())
	n.broadcast(Event{Kind: LoginSucceeded, Session: s})
}

// SessionExpired discards s when it is still the current session. It reports false when s is
// stale or nil, which happens when another operation already reported the expiry or the
// operator has since logged in again.
func (n *Notifier) SessionExpired(s *Session, reason string) bool {
	n.mu.Lock()
	live := s != nil && n.current == s
	if live {
		n.current = nil
	}
	n.mu.Unlock()

	if !live {
		return false
	}

	n.logger.Warn("session expired", "environment", s.Environment(), "reason", reason)
	n.broadcast(Event{Kind: SessionExpired, Reason: reason})
	return true
}

// Logout discards the current session at the operator's request.
func (n *Notifier) Logout() {
	n.mu.Lock()
	had := n.current != nil
	n.current = nil
	n.mu.Unlock()

	if had {
		n.logger.Info("logged out")
		n.broadcast(Event{Kind: LoggedOut})
	}
}

// Check reports err, raised by an operation on s, to the shell when it ends the session. It
// returns true for session expiry so callers can skip their own error display, even when s was
// already replaced and nothing is broadcast.
func (n *Notifier) Check(s *Session, err error) bool {
	if !IsSessionExpired(err) {
		return false
	}
	n.SessionExpired(s, UserMessage(err))
	return true
}

func (n *Notifier) broadcast(e Event) {
	n.mu.Lock()
	observers := append([]Observer(nil), n.observers...)
	n.mu.Unlock()

	for _, o := range observers {
		o.Notify(e)
	}
}
