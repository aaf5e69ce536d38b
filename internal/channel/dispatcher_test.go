package channel

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

func TestDispatcher_Register(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	tg := NewMockChannel("telegram", nil)

	if err := d.Register("telegram", tg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := d.Register("telegram", NewMockChannel("telegram", nil)); !errors.Is(err, ErrDuplicateChannel) {
		t.Errorf("duplicate Register = %v, want ErrDuplicateChannel", err)
	}
	if err := d.Register("", tg); err == nil {
		t.Error("Register accepted an empty name")
	}

	if got, ok := d.Get("telegram"); !ok || got != tg {
		t.Errorf("Get(telegram) = %v, %v", got, ok)
	}
	if _, ok := d.Get("discord"); ok {
		t.Error("Get(discord) found a channel that was never registered")
	}
	if _, err := d.Sender("discord"); !errors.Is(err, ErrNoChannel) {
		t.Errorf("Sender(discord) = %v, want ErrNoChannel", err)
	}
}

func TestDispatcher_ReplyLeavesThroughOriginChannel(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	a, b := NewMockChannel("a", nil), NewMockChannel("b", nil)
	_ = d.Register("b", b)
	_ = d.Register("a", a)

	if names := d.Channels(); !slices.Equal(names, []string{"a", "b"}) {
		t.Errorf("Channels() = %v, want [a b]", names)
	}

	s, err := d.Sender("b")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SendText(context.Background(), "7", "your inbox is empty", SendOptions{}); err != nil {
		t.Fatal(err)
	}
	if len(a.Sent()) != 0 || len(b.Sent()) != 1 || b.Sent()[0].ChatID != "7" {
		t.Errorf("a sent %v, b sent %v", a.Sent(), b.Sent())
	}
}

func TestDispatcher_ConcurrentLookups(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	_ = d.Register("telegram", NewMockChannel("telegram", nil))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if s, err := d.Sender("telegram"); err == nil {
					_ = s.SendText(context.Background(), "1", "x", SendOptions{})
				}
				_ = d.Channels()
			}
		}()
	}
	wg.Wait()
}
