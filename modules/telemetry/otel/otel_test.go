package otel

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/ghostmail/internal/core"
)

func testAppContext() *core.AppContext {
	return core.NewAppContext(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), "")
}

func decodeNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatal(err)
	}
	return node.Content[0]
}

func TestModuleInfo(t *testing.T) {
	t.Parallel()

	info := (&Module{}).ModuleInfo()
	if info.ID != "telemetry.otel" {
		t.Errorf("ID = %q", info.ID)
	}
	if _, ok := info.New().(*Module); !ok {
		t.Error("New() should return *Module")
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	m := &Module{}
	if err := m.Configure(decodeNode(t, "{}")); err != nil {
		t.Fatal(err)
	}
	if m.config.Endpoint != defaultEndpoint || m.config.URLPath != defaultURLPath {
		t.Errorf("config = %+v", m.config)
	}
	if m.config.ratio() != 1 {
		t.Errorf("ratio = %v, want 1", m.config.ratio())
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"scheme in endpoint", "endpoint: http://collector:4318", "without scheme"},
		{"relative path", "url_path: v1/traces", "url_path"},
		{"ratio too high", "sample_ratio: 1.5", "sample_ratio"},
		{"ratio negative", "sample_ratio: -0.1", "sample_ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := &Module{}
			if err := m.Configure(decodeNode(t, tt.yaml)); err != nil {
				t.Fatal(err)
			}
			err := m.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestStartExportsSpans(t *testing.T) {
	// Installs a global provider, so not parallel.
	var exports atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		exports.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := &Module{}
	node := decodeNode(t, "endpoint: "+strings.TrimPrefix(srv.URL, "http://")+"\ninsecure: true\nservice_name: ghostmail-test\n")
	if err := m.Configure(node); err != nil {
		t.Fatal(err)
	}
	if err := m.Provision(testAppContext()); err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "bot.handle")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if exports.Load() == 0 {
		t.Fatal("no spans exported on shutdown")
	}
	if got := path.Load(); got != defaultURLPath {
		t.Errorf("export path = %v, want %s", got, defaultURLPath)
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	if err := (&Module{}).Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
