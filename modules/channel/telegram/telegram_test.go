package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/internal/gateway"
	"github.com/flemzord/ghostmail/pkg/message"
	"gopkg.in/yaml.v3"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid polling", Config{Token: "123456:ABC-DEF_ghijk"}, ""},
		{"missing token", Config{}, "token is required"},
		{"invalid token", Config{Token: "invalid-token"}, "token format invalid"},
		{"invalid api url", Config{Token: "123:abc", APIURL: "not-a-url"}, "api_url"},
		{"polling timeout", Config{Token: "123:abc", PollingTimeout: 60}, "polling_timeout"},
		{"bad mode", Config{Token: "123:abc", Mode: "push"}, "invalid mode"},
		{"webhook without url", Config{Token: "123:abc", Mode: "webhook"}, "webhook_url"},
		{"webhook ok", Config{Token: "123:abc", Mode: "webhook", WebhookURL: "https://bot.example/webhooks/telegram"}, ""},
		{"bad access", Config{Token: "123:abc", Access: "closed"}, "invalid access"},
		{"empty allowlist", Config{Token: "123:abc", Access: AccessAllowlist}, "allow_users"},
		{"allowlist ok", Config{Token: "123:abc", Access: AccessAllowlist, AllowUsers: []string{"1"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg
			cfg.defaults()
			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.defaults()
	if cfg.Mode != "polling" || cfg.PollingTimeout != 30 || cfg.Access != AccessOpen {
		t.Errorf("defaults = %+v", cfg)
	}
	if len(cfg.AllowedUpdates) != 2 || cfg.AllowedUpdates[1] != "callback_query" {
		t.Errorf("AllowedUpdates = %v", cfg.AllowedUpdates)
	}
	if cfg.APIURL != "https://api.telegram.org" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
}

func TestModuleInfo(t *testing.T) {
	t.Parallel()

	tg := &Telegram{}
	if id := tg.ModuleInfo().ID; id != "channel.telegram" {
		t.Errorf("ID = %q", id)
	}
	if tg.Name() != "telegram" {
		t.Errorf("Name() = %q", tg.Name())
	}
}

type botAPI struct {
	t     *testing.T
	fail  string // method answered with a 400
	mu    sync.Mutex
	calls []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	b.mu.Lock()
	b.calls = append(b.calls, method)
	b.mu.Unlock()

	switch method {
	case b.fail:
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(b.t, w, APIResponse[bool]{ErrorCode: 400, Description: "Bad Request: bad webhook: HTTPS url must be provided for webhook"})
	case "getMe":
		writeJSON(b.t, w, APIResponse[User]{OK: true, Result: User{ID: 1, IsBot: true, Username: "GhostMailBot"}})
	case "getUpdates":
		select {
		case <-r.Context().Done():
		case <-time.After(50 * time.Millisecond):
		}
		writeJSON(b.t, w, APIResponse[[]Update]{OK: true, Result: []Update{}})
	default:
		writeJSON(b.t, w, APIResponse[bool]{OK: true, Result: true})
	}
}

func (b *botAPI) called(method string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == method {
			return true
		}
	}
	return false
}

func provisionTelegram(t *testing.T, appCtx *core.AppContext, yamlCfg string) *Telegram {
	t.Helper()

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(yamlCfg), &node); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	tg := &Telegram{}
	if err := tg.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if err := tg.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := tg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	return tg
}

func TestLifecyclePolling(t *testing.T) {
	t.Parallel()

	api := &botAPI{t: t}
	srv := httptest.NewServer(api)
	defer srv.Close()

	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	tg := provisionTelegram(t, appCtx, "token: \"123:abc\"\napi_url: "+srv.URL+"\n")
	tg.SetInbox(func(message.Event) error { return nil })

	if err := tg.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitFor(t, func() bool { return api.called("getUpdates") })
	if err := tg.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if !api.called("deleteWebhook") {
		t.Error("polling start should clear any stale webhook")
	}
}

func TestLifecycleWebhookRegistersWithGateway(t *testing.T) {
	t.Parallel()

	api := &botAPI{t: t}
	srv := httptest.NewServer(api)
	defer srv.Close()

	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	dispatcher := gateway.NewWebhookDispatcher(discardLogger())
	appCtx.RegisterService(gateway.WebhookDispatcherService, dispatcher)

	tg := provisionTelegram(t, appCtx, strings.Join([]string{
		`token: "123:abc"`,
		`mode: webhook`,
		`webhook_url: https://bot.example/webhooks/telegram`,
		`webhook_secret: s3cret`,
		`api_url: ` + srv.URL,
	}, "\n"))
	tg.SetInbox(func(message.Event) error { return nil })

	if err := tg.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !dispatcher.Has("telegram") {
		t.Error("webhook receiver not registered under \"telegram\"")
	}
	if !api.called("setWebhook") {
		t.Error("setWebhook not called")
	}
	if err := tg.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if !api.called("deleteWebhook") {
		t.Error("deleteWebhook not called on stop")
	}
	if dispatcher.Has("telegram") {
		t.Error("webhook receiver still registered after Stop")
	}
}

func TestLifecycleWebhookWithoutGateway(t *testing.T) {
	t.Parallel()

	api := &botAPI{t: t}
	srv := httptest.NewServer(api)
	defer srv.Close()

	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	tg := provisionTelegram(t, appCtx, "token: \"123:abc\"\nmode: webhook\nwebhook_url: https://x.example/hook\napi_url: "+srv.URL)
	tg.SetInbox(func(message.Event) error { return nil })

	if err := tg.Start(); err == nil {
		t.Error("Start() should fail without the gateway dispatcher")
	}
}

func TestStartWithoutInbox(t *testing.T) {
	t.Parallel()

	tg := provisionTelegram(t, core.NewAppContext(discardLogger(), t.TempDir()), `token: "123:abc"`)
	if err := tg.Start(); err == nil {
		t.Error("Start() should fail without an inbox")
	}
}

func TestProvisionAccessModes(t *testing.T) {
	t.Parallel()

	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	open := provisionTelegram(t, appCtx, `token: "123:abc"`)
	if open.allowList != nil {
		t.Error("open access should not build an allow list")
	}

	restricted := provisionTelegram(t, appCtx, "token: \"123:abc\"\naccess: allowlist\nallow_users: [\"42\"]")
	if restricted.allowList == nil {
		t.Fatal("allowlist access should build an allow list")
	}
	ev := message.Event{Sender: message.Sender{ID: "42"}, Chat: message.Chat{ID: "42"}}
	if !restricted.allowList.IsAllowed(ev) {
		t.Error("user 42 should be allowed")
	}
}

var _ channel.Sender = (*Telegram)(nil)

func TestLifecycleWebhookRollsBackOnSetWebhookFailure(t *testing.T) {
	t.Parallel()

	api := &botAPI{t: t, fail: "setWebhook"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	dispatcher := gateway.NewWebhookDispatcher(discardLogger())
	appCtx.RegisterService(gateway.WebhookDispatcherService, dispatcher)

	tg := provisionTelegram(t, appCtx, strings.Join([]string{
		`token: "123:abc"`,
		`mode: webhook`,
		`webhook_url: https://bot.example/webhooks/telegram`,
		`api_url: ` + srv.URL,
	}, "\n"))
	tg.SetInbox(func(message.Event) error { return nil })

	err := tg.Start()
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 400 {
		t.Fatalf("Start() error = %v, want the setWebhook APIError", err)
	}
	if dispatcher.Has("telegram") {
		t.Error("receiver left mounted after setWebhook failed")
	}
	if err := tg.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if api.called("deleteWebhook") {
		t.Error("Stop after a failed start should not call deleteWebhook")
	}
}

func TestLifecycleWebhookNeedsGateway(t *testing.T) {
	t.Parallel()

	api := &botAPI{t: t}
	srv := httptest.NewServer(api)
	defer srv.Close()

	tg := provisionTelegram(t, core.NewAppContext(discardLogger(), t.TempDir()), strings.Join([]string{
		`token: "123:abc"`,
		`mode: webhook`,
		`webhook_url: https://bot.example/webhooks/telegram`,
		`api_url: ` + srv.URL,
	}, "\n"))
	tg.SetInbox(func(message.Event) error { return nil })

	if err := tg.Start(); err == nil || !strings.Contains(err.Error(), "gateway") {
		t.Fatalf("Start() error = %v, want a missing gateway error", err)
	}
}
