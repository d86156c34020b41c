package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/earnx/internal/shared"
	tu "github.com/desertthunder/earnx/internal/testing"
)

func TestAPIClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Trims Trailing Slash", func(t *testing.T) {
			c := NewAPIClient("https://garage.example.com/", "ua", nil, nil)
			if c.BaseURL() != "https://garage.example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", c.BaseURL())
			}
		})

		t.Run("Empty User Agent Falls Back", func(t *testing.T) {
			c := NewAPIClient("http://example.com", "  ", nil, nil)
			if c.userAgent != DefaultUserAgent {
				t.Errorf("expected %q, got %q", DefaultUserAgent, c.userAgent)
			}
		})

		t.Run("From Config", func(t *testing.T) {
			cfg := shared.DefaultConfig()
			c := NewEnvironmentClient(Studio, cfg, nil)
			if c.BaseURL() != "https://studio.newm.io" {
				t.Errorf("expected studio base url, got %s", c.BaseURL())
			}
			if c.httpClient.Timeout.Seconds() != 30 {
				t.Errorf("expected 30s timeout, got %v", c.httpClient.Timeout)
			}
		})
	})

	t.Run("Do", func(t *testing.T) {
		t.Run("Sends Headers And Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("User-Agent"); got != "earnx-test/1.0" {
					t.Errorf("expected user agent header, got %q", got)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer abc.def.ghi" {
					t.Errorf("expected bearer header, got %q", got)
				}
				if got := r.Header.Get("Content-Type"); got != "application/json" {
					t.Errorf("expected json content type, got %q", got)
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"ok":true}`))
			}))
			defer server.Close()

			c := NewAPIClient(server.URL, "earnx-test/1.0", nil, nil)
			resp, err := c.Do(context.Background(), http.MethodPost, "/x", map[string]int{"n": 1}, bearerToken("abc.def.ghi"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() || resp.StatusCode != http.StatusCreated {
				t.Errorf("expected 201, got %d", resp.StatusCode)
			}
			if string(resp.Body) != `{"ok":true}` {
				t.Errorf("unexpected body %s", resp.Body)
			}
		})

		t.Run("Non 2xx Is Not An Error", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(tu.NewResponse(http.StatusTeapot, "short and stout"), nil)}
			c := NewAPIClient("http://example.com", "", client, nil)

			resp, err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.OK() {
				t.Error("expected non-OK response")
			}
		})

		t.Run("Transport Failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection reset"))}
			c := NewAPIClient("http://example.com", "", client, nil)

			_, err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("expected NetworkError, got %v", err)
			}
			if !errors.Is(err, shared.ErrNetwork) {
				t.Error("expected error to wrap ErrNetwork")
			}
		})

		t.Run("Body Read Failure", func(t *testing.T) {
			resp := tu.NewResponse(http.StatusOK, "")
			resp.Body = &tu.FCloser{}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			c := NewAPIClient("http://example.com", "", client, nil)

			_, err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected read failure, got %v", err)
			}
		})

		t.Run("Invalid Request", func(t *testing.T) {
			c := NewAPIClient("http://example.com", "", nil, nil)
			_, err := c.Do(context.Background(), http.MethodGet, "/test\x00invalid", nil, nil)
			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})
	})
}

func TestEnvironment(t *testing.T) {
	t.Run("Names And Indexes", func(t *testing.T) {
		if Garage.String() != "Garage" || Studio.String() != "Studio" {
			t.Errorf("unexpected display names %s, %s", Garage, Studio)
		}
		if Garage.Key() != "garage" || Studio.Key() != "studio" {
			t.Errorf("unexpected keys %s, %s", Garage.Key(), Studio.Key())
		}
		for _, env := range Environments {
			if EnvironmentFromIndex(env.Index()) != env {
				t.Errorf("index round trip failed for %s", env)
			}
		}
		if EnvironmentFromIndex(7) != Garage {
			t.Error("unknown index should select Garage")
		}
	})

	t.Run("Parse", func(t *testing.T) {
		tests := []struct {
			in      string
			want    Environment
			wantErr bool
		}{
			{"", Garage, false},
			{"garage", Garage, false},
			{"Primary", Garage, false},
			{"STUDIO", Studio, false},
			{" secondary ", Studio, false},
			{"prod", Garage, true},
		}

		for _, tt := range tests {
			got, err := ParseEnvironment(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseEnvironment(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEnvironment(%q) = %s, want %s", tt.in, got, tt.want)
			}
		}
	})

	t.Run("Base URL", func(t *testing.T) {
		cfg := shared.EnvironmentsConfig{
			Garage: shared.EndpointConfig{BaseURL: "https://g.example.com/"},
			Studio: shared.EndpointConfig{BaseURL: "https://s.example.com"},
		}
		if got := Garage.BaseURL(cfg); got != "https://g.example.com" {
			t.Errorf("unexpected garage url %s", got)
		}
		if got := Studio.BaseURL(cfg); got != "https://s.example.com" {
			t.Errorf("unexpected studio url %s", got)
		}
	})
}
