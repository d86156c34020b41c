package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/earnx/internal/models"
)

const (
	DefaultEmail    = "admin@example.com"
	DefaultPassword = "correct horse"
)

// CreatedEarning records one accepted create call.
type CreatedEarning struct {
	Identifier string
	USDAmount  int64
}

// BackendState is the configurable behavior and the recorded traffic of a [FakeBackend].
type BackendState struct {
	Email     string
	Password  string
	Admin     bool
	AccessTTL time.Duration

	// Non-zero statuses force the matching endpoint to fail.
	RefreshStatus int
	ListStatus    int
	DeleteStatus  int
	// CreateStatus picks the status for a create call; nil accepts everything.
	CreateStatus func(identifier string) int
	// RevokeAccess makes every earnings endpoint answer 401.
	RevokeAccess bool
	// ListBody replaces the JSON list response when set.
	ListBody string

	Earnings []models.Earning

	LoginCalls   int
	RefreshCalls int
	ListCalls    int
	CreateCalls  int
	DeleteCalls  int
	Created      []CreatedEarning
	Deleted      [][]string
	UserAgents   []string
}

// FakeBackend is an in-process stand-in for the earnings API.
//
// It issues HS256 tokens, tracks which access and refresh tokens are live, and rejects
// requests without a User-Agent the way the production reverse proxy does.
type FakeBackend struct {
	*httptest.Server

	mu      sync.Mutex
	state   BackendState
	access  map[string]bool
	refresh map[string]bool
	seq     int
}

// NewFakeBackend starts a backend that accepts [DefaultEmail]/[DefaultPassword] as an admin.
// The server is closed when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		state: BackendState{
			Email:     DefaultEmail,
			Password:  DefaultPassword,
			Admin:     true,
			AccessTTL: time.Hour,
		},
		access:  make(map[string]bool),
		refresh: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", f.handleLogin)
	mux.HandleFunc("GET /v1/auth/refresh", f.handleRefresh)
	mux.HandleFunc("GET /v1/earnings/admin", f.handleList)
	mux.HandleFunc("POST /v1/earnings/admin/{identifier}", f.handleCreate)
	mux.HandleFunc("DELETE /v1/earnings/admin", f.handleDelete)

	f.Server = httptest.NewServer(f.requireUserAgent(mux))
	t.Cleanup(f.Close)
	return f
}

// Configure mutates the backend state under its lock.
func (f *FakeBackend) Configure(fn func(*BackendState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.state)
}

// State returns a copy of the current state.
func (f *FakeBackend) State() BackendState {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.state
	s.Earnings = slices.Clone(f.state.Earnings)
	s.Created = slices.Clone(f.state.Created)
	s.Deleted = slices.Clone(f.state.Deleted)
	s.UserAgents = slices.Clone(f.state.UserAgents)
	return s
}

// IssuePair mints a live token pair whose access token expires after accessTTL.
// A negative ttl yields an already expired access token.
func (f *FakeBackend) IssuePair(accessTTL time.Duration) (access, refresh string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issue(accessTTL)
}

func (f *FakeBackend) issue(accessTTL time.Duration) (string, string, error) {
	f.seq++
	now := time.Now()

	access, err := SignToken(jwt.MapClaims{
		"admin": f.state.Admin,
		"sub":   "user-123",
		"type":  "access",
		"jti":   fmt.Sprintf("a-%d", f.seq),
		"exp":   now.Add(accessTTL).Unix(),
	})
	if err != nil {
		return "", "", err
	}

	refresh, err := SignToken(jwt.MapClaims{
		"sub":  "user-123",
		"type": "refresh",
		"jti":  fmt.Sprintf("r-%d", f.seq),
		"exp":  now.Add(24 * time.Hour).Unix(),
	})
	if err != nil {
		return "", "", err
	}

	f.access[access] = true
	f.refresh[refresh] = true
	return access, refresh, nil
}

func (f *FakeBackend) requireUserAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.UserAgent()

		f.mu.Lock()
		f.state.UserAgents = append(f.state.UserAgents, ua)
		f.mu.Unlock()

		if ua == "" {
			writeAPIError(w, http.StatusForbidden, "missing client identifier")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.LoginCalls++

	if body.Email != f.state.Email || body.Password != f.state.Password {
		writeAPIError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	f.writePair(w)
}

func (f *FakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.RefreshCalls++

	if f.state.RefreshStatus != 0 {
		writeAPIError(w, f.state.RefreshStatus, "refresh rejected")
		return
	}
	if !f.refresh[bearer(r)] {
		writeAPIError(w, http.StatusUnauthorized, "unknown refresh token")
		return
	}

	f.writePair(w)
}

func (f *FakeBackend) writePair(w http.ResponseWriter) {
	access, refresh, err := f.issue(f.state.AccessTTL)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access, "refreshToken": refresh})
}

// authorized must be called with the lock held.
func (f *FakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if f.state.RevokeAccess || !f.access[bearer(r)] {
		writeAPIError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

func (f *FakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.ListCalls++

	if !f.authorized(w, r) {
		return
	}
	if f.state.ListStatus != 0 {
		writeAPIError(w, f.state.ListStatus, "list failed")
		return
	}
	if f.state.ListBody != "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(f.state.ListBody))
		return
	}

	earnings := f.state.Earnings
	if earnings == nil {
		earnings = []models.Earning{}
	}
	writeJSON(w, http.StatusOK, earnings)
}

func (f *FakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")

	var body struct {
		USDAmount *int64 `json:"usdAmount"`
	}
	decodeErr := json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.CreateCalls++

	if !f.authorized(w, r) {
		return
	}
	if decodeErr != nil || body.USDAmount == nil {
		writeAPIError(w, http.StatusBadRequest, "usdAmount is required")
		return
	}
	if f.state.CreateStatus != nil {
		if status := f.state.CreateStatus(identifier); status < 200 || status > 299 {
			writeAPIError(w, status, fmt.Sprintf("Song %s not found", identifier))
			return
		}
	}

	f.state.Created = append(f.state.Created, CreatedEarning{Identifier: identifier, USDAmount: *body.USDAmount})

	id := fmt.Sprintf("earning-%d", len(f.state.Created))
	song := identifier
	f.state.Earnings = append(f.state.Earnings, models.Earning{
		ID:           &id,
		SongID:       &song,
		StakeAddress: "stake1uexample",
		Amount:       *body.USDAmount,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	w.WriteHeader(http.StatusOK)
}

func (f *FakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	var ids []string
	decodeErr := json.NewDecoder(r.Body).Decode(&ids)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.DeleteCalls++

	if !f.authorized(w, r) {
		return
	}
	if decodeErr != nil {
		writeAPIError(w, http.StatusBadRequest, "expected an array of ids")
		return
	}
	if f.state.DeleteStatus != 0 {
		writeAPIError(w, f.state.DeleteStatus, "delete failed")
		return
	}

	f.state.Deleted = append(f.state.Deleted, ids)
	f.state.Earnings = slices.DeleteFunc(f.state.Earnings, func(e models.Earning) bool {
		return slices.Contains(ids, e.Key())
	})
	w.WriteHeader(http.StatusNoContent)
}

func bearer(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, cause string) {
	writeJSON(w, status, map[string]any{
		"code":        status,
		"description": http.StatusText(status),
		"cause":       cause,
	})
}
