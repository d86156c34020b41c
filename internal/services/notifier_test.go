package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNotifier(t *testing.T) {
	record := func(n *Notifier) *[]Event {
		var (
			mu     sync.Mutex
			events []Event
		)
		n.Subscribe(ObserverFunc(func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		}))
		return &events
	}

	t.Run("Login Installs Session", func(t *testing.T) {
		n := NewNotifier(nil)
		events := record(n)
		s := NewSession(TokenPair{}, Studio, NewAPIClient("http://example.com", "", nil, nil))

		n.LoginSucceeded(s)

		if n.Current() != s {
			t.Error("expected current session to be set")
		}
		if len(*events) != 1 || (*events)[0].Kind != LoginSucceeded || (*events)[0].Session != s {
			t.Errorf("unexpected events %+v", *events)
		}
	})

	t.Run("Expiry Is Reported Once", func(t *testing.T) {
		n := NewNotifier(nil)
		events := record(n)
		s := NewSession(TokenPair{}, Garage, NewAPIClient("http://example.com", "", nil, nil))
		n.LoginSucceeded(s)

		if !n.SessionExpired(s, "first") {
			t.Error("expected first expiry to be reported")
		}
		if n.SessionExpired(s, "second") {
			t.Error("expected second expiry to be ignored")
		}
		if n.Current() != nil {
			t.Error("expected session to be discarded")
		}

		if len(*events) != 2 {
			t.Fatalf("expected login and one expiry, got %d events", len(*events))
		}
		if got := (*events)[1]; got.Kind != SessionExpired || got.Reason != "first" {
			t.Errorf("unexpected expiry event %+v", got)
		}
	})

	t.Run("Check", func(t *testing.T) {
		n := NewNotifier(nil)
		events := record(n)
		s := NewSession(TokenPair{}, Garage, NewAPIClient("http://example.com", "", nil, nil))
		n.LoginSucceeded(s)

		if n.Check(s, &HTTPError{Status: 500, Message: "boom"}) {
			t.Error("API errors must not end the session")
		}
		if n.Check(s, nil) {
			t.Error("nil must not end the session")
		}

		wrapped := fmt.Errorf("import row 3: %w", &SessionExpiredError{Reason: sessionExpiredMessage})
		if !n.Check(s, wrapped) {
			t.Error("expected wrapped session expiry to be detected")
		}
		if last := (*events)[len(*events)-1]; last.Reason != sessionExpiredMessage {
			t.Errorf("expected reason %q, got %q", sessionExpiredMessage, last.Reason)
		}
	})

	t.Run("Stale Expiry Keeps New Session", func(t *testing.T) {
		n := NewNotifier(nil)
		events := record(n)
		client := NewAPIClient("http://example.com", "", nil, nil)
		first := NewSession(TokenPair{}, Garage, client)
		second := NewSession(TokenPair{}, Garage, client)

		n.LoginSucceeded(first)
		if !n.SessionExpired(first, "expired") {
			t.Fatal("expected expiry of the current session")
		}
		n.LoginSucceeded(second)

		late := &SessionExpiredError{Reason: sessionExpiredMessage}
		if !n.Check(first, late) {
			t.Error("expected the error to be classified as expiry")
		}
		if n.Current() != second {
			t.Error("a late error from the old session must not discard the new one")
		}
		if n.SessionExpired(nil, "no session") {
			t.Error("expected nil session to be ignored")
		}
		if len(*events) != 3 {
			t.Errorf("expected login, expiry, login; got %d events", len(*events))
		}
	})

	t.Run("Logout", func(t *testing.T) {
		n := NewNotifier(nil)
		events := record(n)

		n.Logout()
		if len(*events) != 0 {
			t.Error("logout without a session should be silent")
		}

		n.LoginSucceeded(NewSession(TokenPair{}, Garage, NewAPIClient("http://example.com", "", nil, nil)))
		n.Logout()
		if (*events)[len(*events)-1].Kind != LoggedOut {
			t.Error("expected logged out event")
		}
	})

	t.Run("Event Kind Names", func(t *testing.T) {
		if SessionExpired.String() != "session_expired" || EventKind(9).String() != "unknown" {
			t.Error("unexpected event kind names")
		}
	})
}

func TestErrors(t *testing.T) {
	t.Run("HTTP Error Prefers Cause", func(t *testing.T) {
		err := newHTTPError(400, []byte(`{"code":400,"description":"Bad Request","cause":"usdAmount must be positive"}`))
		if err.Message != "usdAmount must be positive" {
			t.Errorf("unexpected message %q", err.Message)
		}
	})

	t.Run("HTTP Error Falls Back To Body", func(t *testing.T) {
		err := newHTTPError(500, []byte("  Internal Server Error\n"))
		if err.Message != "Internal Server Error" {
			t.Errorf("unexpected message %q", err.Message)
		}
	})

	t.Run("User Message", func(t *testing.T) {
		tests := []struct {
			err  error
			want string
		}{
			{nil, ""},
			{&SessionExpiredError{Reason: "gone"}, "gone"},
			{&HTTPError{Status: 404, Message: "Song not found"}, "Song not found"},
			{&NetworkError{Err: errors.New("reset")}, "network error: reset"},
			{errors.New("plain"), "plain"},
		}

		for _, tt := range tests {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
			}
		}
	})
}
