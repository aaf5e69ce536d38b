package ghostmail

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/ghostmail/internal/provider"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/api/", "key-123", srv.Client())
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_Domains_ObjectInDocumentOrder(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/domains/key-123" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		writeBody(w, 200, `{"status":"success","data":{"domains":{"b":"zeta.io","a":"alpha.io","c":"mid.io"}}}`)
	})

	got, err := c.Domains(context.Background())
	if err != nil {
		t.Fatalf("Domains: %v", err)
	}
	want := []string{"zeta.io", "alpha.io", "mid.io"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Domains = %v, want %v", got, want)
	}
}

func TestClient_Domains_Array(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, 200, `{"status":"success","data":{"domains":["x.io","y.io"]}}`)
	})

	got, err := c.Domains(context.Background())
	if err != nil || len(got) != 2 || got[0] != "x.io" {
		t.Fatalf("Domains = %v, %v", got, err)
	}
}

func TestClient_CreateEmail(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/email/create/key-123" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		writeBody(w, 200, `{"status":"success","data":{"email":"a1@x.io","email_token":"tok","deleted_in":"2026-10-20 10:00:00"}}`)
	})

	acct, err := c.CreateEmail(context.Background())
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}
	if acct.Email != "a1@x.io" || acct.Token != "tok" || acct.DeletedIn != "2026-10-20 10:00:00" {
		t.Errorf("account = %+v", acct)
	}
}

func TestClient_ChangeEmail_EscapesSegments(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/email/change/tok/john%2Fdoe/x.io/key-123" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		writeBody(w, 200, `{"status":"success","data":{"email":"john@x.io","email_token":"tok2"}}`)
	})

	acct, err := c.ChangeEmail(context.Background(), "tok", "john/doe", "x.io")
	if err != nil || acct.Token != "tok2" {
		t.Fatalf("ChangeEmail = %+v, %v", acct, err)
	}
}

func TestClient_Messages(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages/tok/key-123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeBody(w, 200, `{"status":"success","data":{"messages":[
			{"id":17,"from":"Bob","from_email":"bob@y.io","subject":"Hi","content":"<p>x</p>","receivedAt":"now","is_seen":true,"attachments":[{"file":"a.pdf"}]},
			{"id":"m2","from":"Eve"}
		]}}`)
	})

	msgs, err := c.Messages(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].ID != "17" || !msgs[0].IsSeen || len(msgs[0].Attachments) != 1 {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].ID != "m2" {
		t.Errorf("msgs[1].ID = %q", msgs[1].ID)
	}
}

func TestClient_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantID  string
		wantErr error
	}{
		{"array", `{"status":"success","data":[{"id":5,"subject":"S"}]}`, "5", nil},
		{"object", `{"status":"success","data":{"id":6}}`, "6", nil},
		{"empty", `{"status":"success","data":[]}`, "", provider.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeBody(w, 200, tt.body)
			})
			msg, err := c.Message(context.Background(), "5")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || msg.ID.String() != tt.wantID {
				t.Fatalf("Message = %+v, %v", msg, err)
			}
		})
	}
}

func TestClient_DeleteCalls(t *testing.T) {
	t.Parallel()

	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeBody(w, 200, `{"status":"success","data":null}`)
	})

	if err := c.DeleteEmail(context.Background(), "tok"); err != nil {
		t.Fatalf("DeleteEmail: %v", err)
	}
	if err := c.DeleteMessage(context.Background(), "9"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	want := []string{"POST /api/email/delete/tok/key-123", "POST /api/message/delete/9/key-123"}
	if strings.Join(paths, "|") != strings.Join(want, "|") {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, 200, `{"status":"error","message":"invalid token"}`)
	})

	_, err := c.Messages(context.Background(), "bad")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if !strings.Contains(err.Error(), "invalid token") {
		t.Errorf("err = %q, want upstream message", err)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			writeBody(w, 503, `{"status":"error","message":"busy"}`)
			return
		}
		writeBody(w, 200, `{"status":"success","data":{"domains":["x.io"]}}`)
	})

	if _, err := c.Domains(context.Background()); err != nil {
		t.Fatalf("Domains: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "2")
		writeBody(w, 429, `{}`)
	})

	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := c.CreateEmail(context.Background())
	if !errors.Is(err, provider.ErrRateLimit) {
		t.Fatalf("err = %v, want ErrRateLimit", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 429 {
		t.Fatalf("err = %v, want *APIError 429", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if len(waits) != 2 || waits[0] != 2*time.Second {
		t.Errorf("waits = %v, want Retry-After honoured", waits)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeBody(w, 404, `{"status":"error","message":"no such message"}`)
	})

	_, err := c.Message(context.Background(), "1")
	if !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_TransportErrorHidesKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(base, "super-secret-key", nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := c.Domains(context.Background())
	if !errors.Is(err, provider.ErrProviderDown) {
		t.Fatalf("err = %v, want ErrProviderDown", err)
	}
	if strings.Contains(err.Error(), "super-secret-key") {
		t.Errorf("error leaks the API key: %v", err)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, 500, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	if _, err := c.Domains(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
