// Package telegram implements the Telegram Bot API channel for ghostmail.
//
// It turns Telegram updates into message.Event values (commands, inline
// button presses and free text) and delivers replies through sendMessage,
// with MarkdownV2 formatting and inline keyboards built from channel.Action
// rows. Updates arrive either by long-polling (default) or through the
// gateway's webhook endpoint.
//
// The module registers itself as "channel.telegram" via init() and follows
// the usual lifecycle: Configure → Provision → Validate → Start → Stop.
//
// No external Telegram library is used. The module talks to the Bot API with
// net/http and encoding/json.
package telegram
