package render

import (
	"fmt"
	"strings"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/pkg/mail"
)

// Layout defaults.
const (
	DefaultPageSize   = 5
	DefaultMaxActions = 3
)

// Action identifiers understood by the bot.
const (
	ActionCreate        = "create_email"
	ActionCheckMessages = "check_messages"
	ActionViewDomains   = "view_domains"
	ActionDeleteEmail   = "delete_email"
	ActionViewPrefix    = "view_message_"
	ActionDeletePrefix  = "delete_msg_"
)

const divider = "━━━━━━━━━━━━━━━"

// Options tunes a Renderer. Zero fields take the defaults.
type Options struct {
	// PageSize is the number of messages shown in one inbox view.
	PageSize int
	// MaxActions is the largest page that still gets per-message buttons.
	MaxActions int
	// MaxBodyLength caps each sanitized body, in UTF-16 code units.
	MaxBodyLength int
}

// Renderer lays out provider data as MarkdownV2 text. It is safe for
// concurrent use.
type Renderer struct {
	sanitizer  Sanitizer
	pageSize   int
	maxActions int
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	r := &Renderer{
		sanitizer:  Sanitizer{MaxLength: opts.MaxBodyLength},
		pageSize:   opts.PageSize,
		maxActions: opts.MaxActions,
	}
	if r.pageSize <= 0 {
		r.pageSize = DefaultPageSize
	}
	if r.maxActions <= 0 {
		r.maxActions = DefaultMaxActions
	}
	return r
}

// Page returns the messages shown in one inbox view, in provider order.
func (r *Renderer) Page(messages []mail.RawMessage) []mail.RawMessage {
	if len(messages) > r.pageSize {
		return messages[:r.pageSize]
	}
	return messages
}

// Inbox renders the first page of messages for the session's address.
func (r *Renderer) Inbox(session mail.Session, messages []mail.RawMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📬 *Inbox for %s*\n\n", r.sanitizer.SanitizeInline(session.EmailAddress))

	if len(messages) == 0 {
		b.WriteString("📭 Your inbox is currently empty\\.")
		return b.String()
	}

	total := len(messages)
	page := r.Page(messages)
	if total > r.pageSize {
		fmt.Fprintf(&b, "📊 Showing %d of %d messages\n\n", len(page), total)
	}

	for i, msg := range page {
		marker := "🔵"
		if msg.IsSeen {
			marker = "✅"
		}
		fmt.Fprintf(&b, "%s *Message %d*\n", marker, i+1)
		r.writeFields(&b, msg)
		b.WriteString(divider)
		b.WriteString("\n\n")
	}

	if more := total - len(page); more > 0 {
		fmt.Fprintf(&b, "📬 You have %d more messages\\. Use the refresh button to see updates\\.", more)
	}
	return b.String()
}

// Message renders a single message in full.
func (r *Renderer) Message(msg mail.RawMessage) string {
	var b strings.Builder
	b.WriteString("📧 *Full Message*\n\n")
	r.writeFields(&b, msg)
	return b.String()
}

func (r *Renderer) writeFields(b *strings.Builder, msg mail.RawMessage) {
	subject := r.sanitizer.SanitizeInline(msg.Subject)
	if subject == "" {
		subject = "No Subject"
	}

	fmt.Fprintf(b, "👤 *From:* %s\n", r.sanitizer.SanitizeInline(msg.From))
	fmt.Fprintf(b, "📧 *Email:* %s\n", r.sanitizer.SanitizeInline(msg.FromEmail))
	fmt.Fprintf(b, "📄 *Subject:* %s\n", subject)
	fmt.Fprintf(b, "📅 *Received:* %s\n", r.sanitizer.SanitizeInline(msg.ReceivedAt))

	if n := len(msg.Attachments); n > 0 {
		fmt.Fprintf(b, "📎 *Attachments:* %d file\\(s\\)\n", n)
		for i, a := range msg.Attachments {
			fmt.Fprintf(b, "   %d\\. %s\n", i+1, r.sanitizer.SanitizeInline(a.File))
		}
	}

	fmt.Fprintf(b, "\n💌 *Full Content:*\n%s\n", r.sanitizer.Sanitize(msg.Content))
}

// Account renders a newly created or changed address.
func (r *Renderer) Account(acct mail.Account, changed bool) string {
	title := "✅ *Email Created Successfully\\!*"
	if changed {
		title = "✅ *Email Changed Successfully\\!*"
	}
	var b strings.Builder
	b.WriteString(title)
	fmt.Fprintf(&b, "\n\n📧 *Your Email:* `%s`\n", escapeCode(acct.Email))
	if acct.DeletedIn != "" {
		fmt.Fprintf(&b, "⏰ *Expires:* %s\n", r.sanitizer.SanitizeInline(acct.DeletedIn))
	}
	b.WriteString("\nYou can now use this email for registrations\\. Use /messages to check your inbox\\.")
	return b.String()
}

// DomainList renders a numbered list of domains. Domain names are escaped
// for MarkdownV2 but not treated as HTML.
func DomainList(domains []string) string {
	var b strings.Builder
	b.WriteString("🌐 *Available Domains:*\n\n")
	for i, d := range domains {
		fmt.Fprintf(&b, "%d\\. %s\n", i+1, EscapeMarkdownV2(d))
	}
	b.WriteString("\nUse /custom followed by a username and one of these domains to pick your own address\\.")
	return b.String()
}

// InboxActions returns the buttons under an inbox view: Refresh, one
// View/Delete row per message when the page is small enough, and New Email.
func (r *Renderer) InboxActions(page []mail.RawMessage) [][]channel.Action {
	rows := [][]channel.Action{{{Label: "🔄 Refresh", ID: ActionCheckMessages}}}

	if len(page) >= 1 && len(page) <= r.maxActions {
		for i, msg := range page {
			rows = append(rows, []channel.Action{
				{Label: fmt.Sprintf("📖 View %d", i+1), ID: ActionViewPrefix + msg.ID.String()},
				{Label: fmt.Sprintf("🗑️ Delete %d", i+1), ID: ActionDeletePrefix + msg.ID.String()},
			})
		}
	}

	return append(rows, []channel.Action{{Label: "📧 New Email", ID: ActionCreate}})
}

// MessageActions returns the buttons under a full message view.
func MessageActions(id mail.ID) [][]channel.Action {
	return [][]channel.Action{
		{{Label: "⬅️ Back to Inbox", ID: ActionCheckMessages}},
		{{Label: "🗑️ Delete Message", ID: ActionDeletePrefix + id.String()}},
	}
}

// AccountActions returns the buttons under a created address.
func AccountActions() [][]channel.Action {
	return [][]channel.Action{
		{{Label: "📥 Check Messages", ID: ActionCheckMessages}},
		{{Label: "🔄 Create New", ID: ActionCreate}, {Label: "🗑️ Delete", ID: ActionDeleteEmail}},
	}
}

// MenuActions returns the main menu buttons.
func MenuActions() [][]channel.Action {
	return [][]channel.Action{
		{{Label: "📧 Create Email", ID: ActionCreate}},
		{{Label: "📥 Check Messages", ID: ActionCheckMessages}},
		{{Label: "🌐 View Domains", ID: ActionViewDomains}},
	}
}

// escapeCode escapes text placed inside a MarkdownV2 code span, where only
// the backtick and the backslash are special.
func escapeCode(s string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(stripControls(s))
}
