package telegram

import (
	"context"
	"sync"
	"time"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// Poller implements long-polling for receiving Telegram updates.
type Poller struct {
	in             *inbound
	timeout        int
	allowedUpdates []string
	errorPause     time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// newPoller creates a new Poller.
func newPoller(in *inbound, config Config) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		in:             in,
		timeout:        config.PollingTimeout,
		allowedUpdates: config.AllowedUpdates,
		errorPause:     errorPauseDuration,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start() {
	go p.loop()
}

// Stop signals the polling loop to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(p.cancel)
	<-p.done
}

func (p *Poller) loop() {
	defer close(p.done)

	var offset int
	var consecutiveErrors int

	for p.ctx.Err() == nil {
		updates, err := p.in.client.GetUpdates(p.ctx, GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.timeout,
			AllowedUpdates: p.allowedUpdates,
		})
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			p.in.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.in.logger.Warn("polling paused after consecutive errors",
					"pause", p.errorPause,
				)
				select {
				case <-p.ctx.Done():
					return
				case <-time.After(p.errorPause):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for i := range updates {
			offset = updates[i].UpdateID + 1
			if err := p.in.handle(p.ctx, &updates[i]); err != nil {
				p.in.logger.Error("failed to deliver update to inbox",
					"update_id", updates[i].UpdateID,
					"error", err,
				)
			}
		}
	}
}
