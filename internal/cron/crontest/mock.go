// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/flemzord/ghostmail/internal/cron"
	"github.com/flemzord/ghostmail/pkg/mail"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

// Compile-time interface check.
var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockNotifier records expiry notices. Set Err to make every call fail.
type MockNotifier struct {
	Err error

	mu       sync.Mutex
	notified []mail.Session
}

// Compile-time interface check.
var _ cron.ExpiryNotifier = (*MockNotifier)(nil)

// NotifyExpired implements cron.ExpiryNotifier.
func (m *MockNotifier) NotifyExpired(_ context.Context, s mail.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, s)
	return m.Err
}

// Notified returns the sessions notified so far, in call order.
func (m *MockNotifier) Notified() []mail.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Session(nil), m.notified...)
}

// MockPruner is a test double for cron.Pruner.
type MockPruner struct {
	Removed    int
	PruneCalls atomic.Int32
}

// Prune implements cron.Pruner.
func (m *MockPruner) Prune() int {
	m.PruneCalls.Add(1)
	return m.Removed
}
