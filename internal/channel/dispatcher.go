package channel

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// DispatcherService is the AppContext key the app's Dispatcher is
// registered under.
const DispatcherService = "channel.dispatcher"

// Dispatcher maps the channel name carried by an event (ev.Channel) back to
// the channel that produced it, so a reply leaves through the platform the
// request came in on.
type Dispatcher struct {
	mu     sync.RWMutex
	byName map[string]Channel
}

// NewDispatcher returns a Dispatcher with no channels.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{byName: map[string]Channel{}}
}

// Register binds name to ch. Names are unique.
func (d *Dispatcher) Register(name string, ch Channel) error {
	if name == "" {
		return errors.New("channel: empty channel name")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byName[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.byName[name] = ch
	return nil
}

// Get looks up a channel by name.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	ch, ok := d.byName[name]
	d.mu.RUnlock()
	return ch, ok
}

// Sender is Get for callers that only deliver; a miss wraps ErrNoChannel.
func (d *Dispatcher) Sender(name string) (Sender, error) {
	if ch, ok := d.Get(name); ok {
		return ch, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoChannel, name)
}

// Channels lists the registered names in sorted order.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.byName))
}
