// Package mail defines the data shapes exchanged with the temporary-email
// provider and held per chat by the bot.
package mail

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is a provider message identifier. The provider emits it as either a JSON
// string or a JSON number; both decode to the same textual form.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("mail: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as text.
func (id ID) String() string { return string(id) }

// Attachment names one file attached to a message.
type Attachment struct {
	File string `json:"file"`
}

// RawMessage is a message as returned by the provider's list and single
// message endpoints. Content is untrusted HTML.
type RawMessage struct {
	ID          ID           `json:"id"`
	From        string       `json:"from"`
	FromEmail   string       `json:"from_email"`
	Subject     string       `json:"subject"`
	Content     string       `json:"content"`
	ReceivedAt  string       `json:"receivedAt"`
	IsSeen      bool         `json:"is_seen"`
	Attachments []Attachment `json:"attachments"`
}

// Account is a freshly created or changed disposable address.
type Account struct {
	Email     string `json:"email"`
	Token     string `json:"email_token"`
	DeletedIn string `json:"deleted_in"`
}

// Domains is the provider's domain list in document order. It decodes from
// a JSON object (values taken in key order as written) or a JSON array.
type Domains []string

// UnmarshalJSON implements json.Unmarshaler.
func (d *Domains) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("mail: decoding domains: %w", err)
	}

	var out Domains
	switch tok {
	case json.Delim('['):
		for dec.More() {
			var s string
			if err := dec.Decode(&s); err != nil {
				return fmt.Errorf("mail: decoding domain: %w", err)
			}
			out = append(out, s)
		}
	case json.Delim('{'):
		for dec.More() {
			if _, err := dec.Token(); err != nil { // key
				return fmt.Errorf("mail: decoding domain key: %w", err)
			}
			var s string
			if err := dec.Decode(&s); err != nil {
				return fmt.Errorf("mail: decoding domain: %w", err)
			}
			out = append(out, s)
		}
	case nil:
		*d = nil
		return nil
	default:
		return errors.New("mail: domains must be an object or an array")
	}
	*d = out
	return nil
}

// Session binds a chat to its current disposable address.
type Session struct {
	ChatID       string    `json:"chat_id"`
	EmailAddress string    `json:"email_address"`
	EmailToken   string    `json:"email_token"`
	ExpiresAt    string    `json:"expires_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewSession builds a session from a provider account.
func NewSession(chatID string, acct Account, now time.Time) Session {
	return Session{
		ChatID:       chatID,
		EmailAddress: acct.Email,
		EmailToken:   acct.Token,
		ExpiresAt:    acct.DeletedIn,
		CreatedAt:    now,
	}
}

var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Expiry returns when the session lapses. The provider's deletion time is used
// when it parses; otherwise the session lives ttl after creation. A zero ttl
// with an unparseable provider time means the session never expires.
func (s Session) Expiry(ttl time.Duration) (time.Time, bool) {
	if t, ok := parseExpiry(s.ExpiresAt); ok {
		return t, true
	}
	if ttl <= 0 || s.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return s.CreatedAt.Add(ttl), true
}

// Expired reports whether the session has lapsed at now.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	exp, ok := s.Expiry(ttl)
	return ok && !now.Before(exp)
}

func parseExpiry(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	// Unix seconds.
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
		return time.Unix(n, 0).UTC(), true
	}
	return time.Time{}, false
}
