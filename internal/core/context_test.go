package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"
)

// probeModule records which lifecycle hooks LoadModule called, in order.
type probeModule struct {
	id           ModuleID
	calls        *[]string
	provisionErr error
	validateErr  error
	configErr    error
	gotKey       *string
}

func (m *probeModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{
		ID: m.id,
		New: func() Module {
			clone := *m
			return &clone
		},
	}
}

func (m *probeModule) record(call string) {
	if m.calls != nil {
		*m.calls = append(*m.calls, call)
	}
}

func (m *probeModule) Provision(*AppContext) error {
	m.record("provision")
	return m.provisionErr
}

func (m *probeModule) Validate() error {
	m.record("validate")
	return m.validateErr
}

func (m *probeModule) Stop(context.Context) error {
	m.record("stop")
	return nil
}

// configurableProbe adds Configure on top of probeModule.
type configurableProbe struct {
	probeModule
}

func (m *configurableProbe) ModuleInfo() ModuleInfo {
	return ModuleInfo{
		ID: m.id,
		New: func() Module {
			clone := *m
			return &clone
		},
	}
}

func (m *configurableProbe) Configure(node *yaml.Node) error {
	m.record("configure")
	if m.configErr != nil {
		return m.configErr
	}
	var parsed struct {
		Key string `yaml:"key"`
	}
	if err := node.Decode(&parsed); err != nil {
		return err
	}
	if m.gotKey != nil {
		*m.gotKey = parsed.Key
	}
	return nil
}

func mappingNode(t *testing.T, src string) yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}
	return *doc.Content[0]
}

func TestAppContext_ForModule_LoggerCarriesID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NewAppContext(logger, "/data").ForModule("channel.telegram").Logger.Info("hello")

	if !bytes.Contains(buf.Bytes(), []byte("module=channel.telegram")) {
		t.Errorf("log line = %q", buf.String())
	}
}

func TestAppContext_LoadModule(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		configure bool
		config    string
		provErr   error
		valErr    error
		cfgErr    error
		wantErr   error
		wantCalls []string
		wantKey   string
	}{
		{
			name:      "provision then validate",
			wantCalls: []string{"provision", "validate"},
		},
		{
			name:      "config decoded first",
			configure: true,
			config:    "key: hello",
			wantCalls: []string{"configure", "provision", "validate"},
			wantKey:   "hello",
		},
		{
			name:      "configure skipped without a section",
			configure: true,
			wantCalls: []string{"provision", "validate"},
		},
		{
			name:      "section ignored by a plain module",
			config:    "key: hello",
			wantCalls: []string{"provision", "validate"},
		},
		{
			name:      "configure error stops early",
			configure: true,
			config:    "key: hello",
			cfgErr:    boom,
			wantErr:   boom,
			wantCalls: []string{"configure"},
		},
		{
			name:      "provision error skips validate",
			provErr:   boom,
			wantErr:   boom,
			wantCalls: []string{"provision"},
		},
		{
			name:      "validate error releases the module",
			valErr:    boom,
			wantErr:   boom,
			wantCalls: []string{"provision", "validate", "stop"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetRegistry)

			var calls []string
			var gotKey string
			probe := probeModule{
				id:           "test.probe",
				calls:        &calls,
				provisionErr: tt.provErr,
				validateErr:  tt.valErr,
				configErr:    tt.cfgErr,
				gotKey:       &gotKey,
			}
			if tt.configure {
				RegisterModule(&configurableProbe{probe})
			} else {
				RegisterModule(&probe)
			}

			ctx := NewAppContext(nil, "/data")
			if tt.config != "" {
				ctx = ctx.WithModuleConfigs(map[string]yaml.Node{"test.probe": mappingNode(t, tt.config)})
			}

			mod, err := ctx.LoadModule("test.probe")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoadModule() error = %v, want %v", err, tt.wantErr)
			}
			if (mod == nil) != (tt.wantErr != nil) {
				t.Errorf("LoadModule() module = %v with error %v", mod, err)
			}
			if !slices.Equal(calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
			}
			if gotKey != tt.wantKey {
				t.Errorf("key = %q, want %q", gotKey, tt.wantKey)
			}
		})
	}
}

func TestAppContext_LoadModule_Unknown(t *testing.T) {
	t.Cleanup(resetRegistry)

	if _, err := NewAppContext(nil, "/data").LoadModule("session.nowhere"); err == nil {
		t.Fatal("expected error for an unregistered module")
	}
}

func TestAppContext_LoadModule_EmptySection(t *testing.T) {
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&configurableProbe{probeModule{id: "test.empty", calls: &calls}})

	ctx := NewAppContext(nil, "/data").WithModuleConfigs(map[string]yaml.Node{"test.empty": {}})
	if _, err := ctx.LoadModule("test.empty"); err != nil {
		t.Fatal(err)
	}
	if slices.Contains(calls, "configure") {
		t.Errorf("calls = %v, Configure should not see a zero node", calls)
	}
}

func TestAppContext_ForModule_SharesConfigs(t *testing.T) {
	ctx := NewAppContext(nil, "/data").WithModuleConfigs(map[string]yaml.Node{
		"session.sqlite": mappingNode(t, "path: x.db"),
	})

	child := ctx.ForModule("gateway.http")
	if _, ok := child.moduleConfigs["session.sqlite"]; !ok {
		t.Error("child context lost the module configs")
	}
	if child.DataDir != "/data" {
		t.Errorf("DataDir = %q", child.DataDir)
	}
}

func TestAppContext_ServicesSharedAcrossModules(t *testing.T) {
	root := NewAppContext(nil, "/data")
	a := root.ForModule("session.sqlite")
	b := root.ForModule("gateway.http")

	a.RegisterService("session.store", "store-value")

	got, ok := b.Service("session.store")
	if !ok {
		t.Fatal("service registered by one module should be visible to another")
	}
	if got != "store-value" {
		t.Errorf("service = %v, want %q", got, "store-value")
	}
}

func TestServiceAs(t *testing.T) {
	ctx := NewAppContext(nil, "/data")
	ctx.RegisterService("answer", 42)

	n, ok := ServiceAs[int](ctx, "answer")
	if !ok || n != 42 {
		t.Errorf("ServiceAs[int] = (%d, %v), want (42, true)", n, ok)
	}
	if _, ok := ServiceAs[string](ctx, "answer"); ok {
		t.Error("ServiceAs with the wrong type should report false")
	}
	if _, ok := ServiceAs[int](ctx, "missing"); ok {
		t.Error("ServiceAs on a missing service should report false")
	}
}

func TestModuleID_Parts(t *testing.T) {
	tests := []struct {
		id        ModuleID
		namespace string
		name      string
	}{
		{"channel.telegram", "channel", "telegram"},
		{"session.redis", "session", "redis"},
		{"standalone", "standalone", "standalone"},
	}
	for _, tt := range tests {
		if got := tt.id.Namespace(); got != tt.namespace {
			t.Errorf("%s.Namespace() = %q, want %q", tt.id, got, tt.namespace)
		}
		if got := tt.id.Name(); got != tt.name {
			t.Errorf("%s.Name() = %q, want %q", tt.id, got, tt.name)
		}
	}
}
