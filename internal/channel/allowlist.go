package channel

import (
	"strings"

	"github.com/flemzord/ghostmail/pkg/message"
)

// AllowList restricts who may talk to the bot. A nil or empty list denies
// everyone; channels that want open access skip the check instead.
//
// User entries are either numeric sender IDs ("123456") or usernames with a
// leading @ ("@alice"). Group entries are chat IDs and only admit events from
// group chats.
type AllowList struct {
	ids       map[string]struct{}
	usernames map[string]struct{}
	groups    map[string]struct{}
}

// NewAllowList builds an AllowList. Entries are trimmed and matched
// case-insensitively; blank entries are ignored.
func NewAllowList(users, groups []string) *AllowList {
	a := &AllowList{
		ids:       make(map[string]struct{}),
		usernames: make(map[string]struct{}),
		groups:    make(map[string]struct{}),
	}
	for _, u := range users {
		u = normalize(u)
		switch {
		case u == "" || u == "@":
		case strings.HasPrefix(u, "@"):
			a.usernames[u[1:]] = struct{}{}
		default:
			a.ids[u] = struct{}{}
		}
	}
	for _, g := range groups {
		if g = normalize(g); g != "" {
			a.groups[g] = struct{}{}
		}
	}
	return a
}

// Len returns the number of entries.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.ids) + len(a.usernames) + len(a.groups)
}

// IsAllowed reports whether the event's sender or group chat is listed.
func (a *AllowList) IsAllowed(ev message.Event) bool {
	if a.Len() == 0 {
		return false
	}
	if _, ok := a.ids[normalize(ev.Sender.ID)]; ok {
		return true
	}
	if name := normalize(ev.Sender.Username); name != "" {
		if _, ok := a.usernames[strings.TrimPrefix(name, "@")]; ok {
			return true
		}
	}
	if !ev.Chat.IsDirectMessage() {
		if _, ok := a.groups[normalize(ev.Chat.ID)]; ok {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
