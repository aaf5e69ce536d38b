package provider_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/internal/provider/providertest"
	"github.com/flemzord/ghostmail/pkg/mail"
)

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs int
}

func (o *recordingObserver) ObserveProviderRequest(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	if err != nil {
		o.errs++
	}
}

func TestGuard_PassesThrough(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		CreateEmailFunc: func(context.Context) (mail.Account, error) {
			return mail.Account{Email: "a@b.c", Token: "tok"}, nil
		},
		MessagesFunc: func(_ context.Context, token string) ([]mail.RawMessage, error) {
			if token != "tok" {
				t.Errorf("token = %q, want tok", token)
			}
			return []mail.RawMessage{{ID: "1"}}, nil
		},
	}
	obs := &recordingObserver{}
	g := provider.NewGuard("mock", mock, provider.HealthConfig{}, provider.WithObserver(obs))

	acct, err := g.CreateEmail(context.Background())
	if err != nil || acct.Email != "a@b.c" {
		t.Fatalf("CreateEmail = %+v, %v", acct, err)
	}
	msgs, err := g.Messages(context.Background(), "tok")
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Messages = %v, %v", msgs, err)
	}

	if len(obs.ops) != 2 || obs.ops[0] != "create" || obs.ops[1] != "messages" {
		t.Errorf("observed ops = %v", obs.ops)
	}
}

func TestGuard_FailsFastDuringCooldown(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		DomainsFunc: func(context.Context) ([]string, error) {
			return nil, fmt.Errorf("boom: %w", provider.ErrProviderDown)
		},
	}
	g := provider.NewGuard("mock", mock, provider.HealthConfig{InitialBackoff: time.Hour})

	if _, err := g.Domains(context.Background()); !errors.Is(err, provider.ErrProviderDown) {
		t.Fatalf("first call err = %v", err)
	}
	if _, err := g.Domains(context.Background()); !errors.Is(err, provider.ErrProviderDown) {
		t.Fatalf("second call err = %v", err)
	}
	if got := mock.Calls("domains"); got != 1 {
		t.Errorf("backend calls = %d, want 1 (second call should fail fast)", got)
	}

	st := g.Status()
	if st.Available || st.State != "backoff" || st.Name != "mock" {
		t.Errorf("Status = %+v", st)
	}
}

func TestGuard_NotFoundKeepsHealthy(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		MessageFunc: func(context.Context, string) (mail.RawMessage, error) {
			return mail.RawMessage{}, provider.ErrNotFound
		},
	}
	g := provider.NewGuard("mock", mock, provider.HealthConfig{})

	for range 3 {
		if _, err := g.Message(context.Background(), "9"); !errors.Is(err, provider.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if st := g.Status(); !st.Available || st.Failures != 0 {
		t.Errorf("Status = %+v, want healthy", st)
	}
}

func TestGuard_CanceledDoesNotCount(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		DeleteMessageFunc: func(ctx context.Context, _ string) error {
			return ctx.Err()
		},
	}
	g := provider.NewGuard("mock", mock, provider.HealthConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.DeleteMessage(ctx, "1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if st := g.Status(); st.Failures != 0 {
		t.Errorf("failures = %d, want 0", st.Failures)
	}
}

func TestGuard_HealthCheckRevivesBackend(t *testing.T) {
	t.Parallel()

	var healthy sync.WaitGroup
	healthy.Add(1)
	var once sync.Once
	mock := &providertest.MockProvider{
		DomainsFunc: func(context.Context) ([]string, error) {
			return nil, provider.ErrProviderDown
		},
		HealthCheckFunc: func(context.Context) error {
			once.Do(healthy.Done)
			return nil
		},
	}
	g := provider.NewGuard("mock", mock, provider.HealthConfig{
		MaxFailures:   1,
		CheckInterval: 5 * time.Millisecond,
	})

	_, _ = g.Domains(context.Background())
	if st := g.Status(); st.State != "down" {
		t.Fatalf("state = %q, want down", st.State)
	}

	g.Start(context.Background())
	defer g.Stop()

	healthy.Wait()
	deadline := time.Now().Add(time.Second)
	for g.Status().State != "up" {
		if time.Now().After(deadline) {
			t.Fatal("backend never revived")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGuard_StopWithoutStart(t *testing.T) {
	t.Parallel()

	g := provider.NewGuard("mock", &providertest.MockProvider{}, provider.HealthConfig{})
	g.Stop()
}

func TestGuard_ImmediateStopAfterStart(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		HealthCheckFunc: func(context.Context) error { return nil },
	}
	for range 2000 {
		g := provider.NewGuard("mock", mock, provider.HealthConfig{CheckInterval: time.Millisecond})
		g.Start(context.Background())
		g.Stop()
	}
}

func TestGuard_RestartAfterStop(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		HealthCheckFunc: func(context.Context) error { return nil },
	}
	g := provider.NewGuard("mock", mock, provider.HealthConfig{CheckInterval: time.Millisecond})
	for range 50 {
		g.Start(context.Background())
		g.Start(context.Background())
		g.Stop()
		g.Stop()
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{provider.ErrRateLimit, true},
		{fmt.Errorf("x: %w", provider.ErrProviderDown), true},
		{provider.ErrNotFound, false},
		{errors.New("other"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := provider.IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
