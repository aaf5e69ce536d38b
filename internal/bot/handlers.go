package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/internal/render"
	"github.com/flemzord/ghostmail/internal/session"
	"github.com/flemzord/ghostmail/pkg/mail"
	"github.com/flemzord/ghostmail/pkg/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrKind    = attribute.Key("bot.event.kind")
	attrName    = attribute.Key("bot.event.name")
	attrChannel = attribute.Key("bot.channel")
)

const (
	errStoreFailed = "❌ Something went wrong on our side. Please try again."
	errGone        = "⌛ Your email address is no longer available. Use /create to get a new one."
)

// Event names used for metrics and dispatch.
const (
	nameUnknown       = "unknown"
	nameText          = "text"
	nameViewMessage   = "view_message"
	nameDeleteMessage = "delete_msg"
)

var commands = map[string]bool{
	"start": true, "help": true, "create": true, "messages": true,
	"domains": true, "custom": true, "delete": true,
}

// eventName maps an event to a bounded name: the command, the callback
// action with its message ID stripped, or "unknown".
func eventName(ev message.Event) string {
	switch ev.Kind {
	case message.KindCommand:
		if commands[ev.Command] {
			return ev.Command
		}
	case message.KindCallback:
		switch {
		case ev.Data == render.ActionCreate, ev.Data == render.ActionCheckMessages,
			ev.Data == render.ActionViewDomains, ev.Data == render.ActionDeleteEmail:
			return ev.Data
		case strings.HasPrefix(ev.Data, render.ActionViewPrefix):
			return nameViewMessage
		case strings.HasPrefix(ev.Data, render.ActionDeletePrefix):
			return nameDeleteMessage
		}
	case message.KindText:
		return nameText
	}
	return nameUnknown
}

// turn is the handling of one event: where replies go and what triggered them.
type turn struct {
	bot    *Bot
	sender channel.Sender
	ev     message.Event
	chatID string
}

func (t *turn) dispatch(ctx context.Context, name string) {
	switch name {
	case "start":
		t.deliver(ctx, welcomeText, render.MenuActions())
	case "help":
		t.deliver(ctx, helpText, nil)
	case "create", render.ActionCreate:
		t.create(ctx)
	case "messages", render.ActionCheckMessages:
		t.messages(ctx)
	case "domains", render.ActionViewDomains:
		t.domains(ctx)
	case "custom":
		t.custom(ctx, t.ev.Args)
	case "delete", render.ActionDeleteEmail:
		t.deleteEmail(ctx)
	case nameViewMessage:
		t.viewMessage(ctx, strings.TrimPrefix(t.ev.Data, render.ActionViewPrefix))
	case nameDeleteMessage:
		t.deleteMessage(ctx, strings.TrimPrefix(t.ev.Data, render.ActionDeletePrefix))
	case nameText:
		// Free text carries no request.
	default:
		if t.ev.Kind == message.KindCommand {
			t.notice(ctx, errUnknownCommand)
			return
		}
		t.bot.logger.Debug("bot: ignoring unknown callback", "data", t.ev.Data)
	}
}

func (t *turn) create(ctx context.Context) {
	t.notice(ctx, noticeCreating)

	acct, err := t.bot.provider.CreateEmail(ctx)
	if err != nil {
		t.fail(ctx, "create email", err, errCreateFailed)
		return
	}
	if err := t.bot.sessions.Put(ctx, mail.NewSession(t.chatID, acct, t.bot.now())); err != nil {
		t.fail(ctx, "store session", err, errStoreFailed)
		return
	}
	t.bot.refreshSessions(ctx)

	t.deliver(ctx, t.bot.renderer.Account(acct, false), render.AccountActions())
}

func (t *turn) custom(ctx context.Context, args []string) {
	username, domain, ok := customArgs(args)
	if !ok {
		t.notice(ctx, customUsage)
		return
	}

	t.notice(ctx, noticeChanging)

	sess, found, err := t.session(ctx)
	if err != nil {
		t.fail(ctx, "load session", err, errStoreFailed)
		return
	}
	if !found {
		acct, err := t.bot.provider.CreateEmail(ctx)
		if err != nil {
			t.fail(ctx, "create email", err, errCreateFailed)
			return
		}
		sess = mail.NewSession(t.chatID, acct, t.bot.now())
		if err := t.bot.sessions.Put(ctx, sess); err != nil {
			t.fail(ctx, "store session", err, errStoreFailed)
			return
		}
		t.bot.refreshSessions(ctx)
	}

	acct, err := t.bot.provider.ChangeEmail(ctx, sess.EmailToken, username, domain)
	if err != nil {
		t.fail(ctx, "change email", err, errChangeFailed)
		return
	}
	if acct.Token == "" {
		acct.Token = sess.EmailToken
	}
	if err := t.bot.sessions.Put(ctx, mail.NewSession(t.chatID, acct, t.bot.now())); err != nil {
		t.fail(ctx, "store session", err, errStoreFailed)
		return
	}

	t.deliver(ctx, t.bot.renderer.Account(acct, true), render.AccountActions())
}

// customArgs accepts "/custom alice example.com" and "/custom alice@example.com".
func customArgs(args []string) (username, domain string, ok bool) {
	switch len(args) {
	case 1:
		username, domain, ok = strings.Cut(args[0], "@")
	case 2:
		username, domain, ok = args[0], strings.TrimPrefix(args[1], "@"), true
	}
	if username == "" || domain == "" {
		return "", "", false
	}
	return username, domain, ok
}

func (t *turn) messages(ctx context.Context) {
	sess, ok := t.requireSession(ctx, errNoSession)
	if !ok {
		return
	}

	t.notice(ctx, noticeChecking)

	msgs, err := t.bot.provider.Messages(ctx, sess.EmailToken)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			t.forget(ctx)
			return
		}
		t.fail(ctx, "list messages", err, errFetchFailed)
		return
	}

	page := t.bot.renderer.Page(msgs)
	t.deliver(ctx, t.bot.renderer.Inbox(sess, msgs), t.bot.renderer.InboxActions(page))
}

func (t *turn) domains(ctx context.Context) {
	t.notice(ctx, noticeFetchDomains)

	domains, err := t.bot.provider.Domains(ctx)
	if err != nil {
		t.fail(ctx, "list domains", err, errDomainsFailed)
		return
	}
	if len(domains) == 0 {
		t.notice(ctx, errDomainsFailed)
		return
	}

	t.deliver(ctx, render.DomainList(domains), nil)
}

func (t *turn) deleteEmail(ctx context.Context) {
	sess, ok := t.requireSession(ctx, errNothingDelete)
	if !ok {
		return
	}

	t.notice(ctx, noticeDeletingEmail)

	// An address the provider no longer knows is already gone.
	if err := t.bot.provider.DeleteEmail(ctx, sess.EmailToken); err != nil && !errors.Is(err, provider.ErrNotFound) {
		t.fail(ctx, "delete email", err, errDeleteFailed)
		return
	}
	if err := t.bot.sessions.Delete(ctx, t.chatID); err != nil {
		t.fail(ctx, "delete session", err, errStoreFailed)
		return
	}
	t.bot.refreshSessions(ctx)

	t.deliver(ctx, emailDeletedText, [][]channel.Action{{{Label: "📧 Create New Email", ID: render.ActionCreate}}})
}

func (t *turn) viewMessage(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if _, ok := t.requireSession(ctx, errNoSessionShort); !ok {
		return
	}

	t.notice(ctx, noticeLoadingMessage)

	msg, err := t.bot.provider.Message(ctx, id)
	if err != nil {
		t.fail(ctx, "load message", err, errLoadFailed)
		return
	}
	if msg.ID == "" {
		msg.ID = mail.ID(id)
	}

	t.deliver(ctx, t.bot.renderer.Message(msg), render.MessageActions(msg.ID))
}

func (t *turn) deleteMessage(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if _, ok := t.requireSession(ctx, errNoSessionShort); !ok {
		return
	}

	t.notice(ctx, noticeDeletingMsg)

	if err := t.bot.provider.DeleteMessage(ctx, id); err != nil {
		t.fail(ctx, "delete message", err, errDeleteMsgFail)
		return
	}

	t.deliver(ctx, messageDeletedText, [][]channel.Action{{{Label: "⬅️ Back to Inbox", ID: render.ActionCheckMessages}}})
}

// session loads the chat's session. found is false when there is none.
func (t *turn) session(ctx context.Context) (s mail.Session, found bool, err error) {
	s, err = t.bot.sessions.Get(ctx, t.chatID)
	if errors.Is(err, session.ErrNotFound) {
		return mail.Session{}, false, nil
	}
	if err != nil {
		return mail.Session{}, false, err
	}
	return s, true, nil
}

// requireSession loads the session or tells the user there is none.
func (t *turn) requireSession(ctx context.Context, missing string) (mail.Session, bool) {
	s, found, err := t.session(ctx)
	if err != nil {
		t.fail(ctx, "load session", err, errStoreFailed)
		return mail.Session{}, false
	}
	if !found {
		t.send(ctx, missing, channel.SendOptions{Actions: createRow()})
		return mail.Session{}, false
	}
	return s, true
}

// forget drops a session whose address the provider no longer knows.
func (t *turn) forget(ctx context.Context) {
	if err := t.bot.sessions.Delete(ctx, t.chatID); err != nil {
		t.bot.logger.Warn("bot: dropping stale session failed", "chat_id", t.chatID, "error", err)
	}
	t.bot.refreshSessions(ctx)
	t.send(ctx, errGone, channel.SendOptions{Actions: createRow()})
}

// deliver renders text through the chunker and the delivery pipeline.
func (t *turn) deliver(ctx context.Context, text string, actions [][]channel.Action) {
	chunks := channel.SplitIntoChunks(text, t.bot.cfg.ChunkSize)
	t.bot.pipeline.Deliver(ctx, t.sender, t.chatID, chunks, actions)
}

// notice sends a short unformatted status line.
func (t *turn) notice(ctx context.Context, text string) {
	t.send(ctx, text, channel.SendOptions{})
}

func (t *turn) send(ctx context.Context, text string, opts channel.SendOptions) {
	ctx, cancel := context.WithTimeout(ctx, t.bot.cfg.SendTimeout)
	defer cancel()
	if err := t.sender.SendText(ctx, t.chatID, text, opts); err != nil {
		t.bot.logger.Warn("bot: sending notice failed", "chat_id", t.chatID, "error", err)
	}
}

// fail logs err, marks the span and tells the user.
func (t *turn) fail(ctx context.Context, op string, err error, userText string) {
	t.bot.logger.Warn("bot: "+op+" failed",
		"channel", t.ev.Channel,
		"chat_id", t.chatID,
		"error", err,
	)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	t.notice(ctx, userText)
}

func createRow() [][]channel.Action {
	return [][]channel.Action{{{Label: "📧 Create Email", ID: render.ActionCreate}}}
}
