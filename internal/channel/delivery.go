package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is the delivery result of one chunk.
type Outcome int

const (
	// DeliveredFormatted means the chunk was accepted as MarkdownV2.
	DeliveredFormatted Outcome = iota
	// DeliveredPlain means the formatted send was rejected and the plain
	// text fallback was accepted.
	DeliveredPlain
	// Failed means both attempts were rejected.
	Failed
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case DeliveredFormatted:
		return "formatted"
	case DeliveredPlain:
		return "plain"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Pipeline defaults.
const (
	DefaultPacing      = 100 * time.Millisecond
	DefaultSendTimeout = 15 * time.Second
	DefaultNotice      = "❌ Error displaying message content. The message may contain unsupported characters."
)

// Recorder observes delivery results. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	ObserveDelivery(chunks int, outcomes []Outcome)
}

// PipelineConfig configures a Pipeline. Zero fields take the defaults.
type PipelineConfig struct {
	// Pacing is the pause between consecutive chunks.
	Pacing time.Duration
	// SendTimeout bounds every single send attempt.
	SendTimeout time.Duration
	// Notice is sent, unformatted, when the last chunk cannot be delivered.
	Notice   string
	Logger   *slog.Logger
	Recorder Recorder
}

// Pipeline delivers chunks in order, degrading to plain text when a
// formatted send is rejected.
type Pipeline struct {
	pacing      time.Duration
	sendTimeout time.Duration
	notice      string
	logger      *slog.Logger
	recorder    Recorder
	tracer      trace.Tracer

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a Pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		pacing:      cfg.Pacing,
		sendTimeout: cfg.SendTimeout,
		notice:      cfg.Notice,
		logger:      cfg.Logger,
		recorder:    cfg.Recorder,
		tracer:      otel.Tracer("github.com/flemzord/ghostmail/internal/channel"),
		sleep:       sleepContext,
	}
	if p.pacing <= 0 {
		p.pacing = DefaultPacing
	}
	if p.sendTimeout <= 0 {
		p.sendTimeout = DefaultSendTimeout
	}
	if p.notice == "" {
		p.notice = DefaultNotice
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Deliver sends chunks to chatID one at a time and returns one Outcome per
// chunk. Chunk i+1 is never sent before chunk i is resolved. Only the last
// chunk carries actions. When the last chunk fails, a single terminal notice
// carrying the actions is sent. If ctx ends between chunks, the remaining
// chunks are reported as Failed without being sent.
func (p *Pipeline) Deliver(ctx context.Context, sender Sender, chatID string, chunks []string, actions [][]Action) []Outcome {
	ctx, span := p.tracer.Start(ctx, "channel.deliver", trace.WithAttributes(
		attribute.Int("delivery.chunks", len(chunks)),
	))
	defer span.End()

	outcomes := make([]Outcome, len(chunks))
	last := len(chunks) - 1

	for i, chunk := range chunks {
		if i > 0 {
			if err := p.sleep(ctx, p.pacing); err != nil {
				for j := i; j < len(chunks); j++ {
					outcomes[j] = Failed
				}
				p.logger.Warn("delivery interrupted", "chat", chatID, "sent", i, "total", len(chunks), "error", err)
				span.SetStatus(codes.Error, "interrupted")
				break
			}
		}

		var chunkActions [][]Action
		if i == last {
			chunkActions = actions
		}

		outcomes[i] = p.deliverChunk(ctx, sender, chatID, chunk, chunkActions)
		span.AddEvent("chunk", trace.WithAttributes(
			attribute.Int("chunk.index", i),
			attribute.String("chunk.outcome", outcomes[i].String()),
		))

		if outcomes[i] == Failed && i == last {
			if err := p.send(ctx, sender, chatID, p.notice, SendOptions{Actions: actions}); err != nil {
				p.logger.Error("terminal notice failed", "chat", chatID, "error", err)
			}
			span.SetStatus(codes.Error, "last chunk failed")
		}
	}

	if p.recorder != nil {
		p.recorder.ObserveDelivery(len(chunks), outcomes)
	}
	return outcomes
}

func (p *Pipeline) deliverChunk(ctx context.Context, sender Sender, chatID, chunk string, actions [][]Action) Outcome {
	err := p.send(ctx, sender, chatID, chunk, SendOptions{Formatted: true, Actions: actions})
	if err == nil {
		return DeliveredFormatted
	}
	p.logger.Warn("formatted send rejected, retrying as plain text", "chat", chatID, "error", err)

	if err := p.send(ctx, sender, chatID, PlainText(chunk), SendOptions{Actions: actions}); err != nil {
		p.logger.Error("plain text send failed", "chat", chatID, "error", err)
		return Failed
	}
	return DeliveredPlain
}

func (p *Pipeline) send(ctx context.Context, sender Sender, chatID, text string, opts SendOptions) error {
	ctx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()
	return sender.SendText(ctx, chatID, text, opts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
