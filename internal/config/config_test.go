package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/session"
	"github.com/danmuck/fixctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func TestTemplatesDecodeAndValidate(t *testing.T) {
	testlog.Start(t)
	for _, kind := range []string{"fixctl", "minimal"} {
		tmpl, err := Template(kind)
		if err != nil {
			t.Fatalf("template %s: %v", kind, err)
		}
		if _, err := Decode(tmpl); err != nil {
			t.Fatalf("template %s invalid: %v", kind, err)
		}
	}
	if _, err := Template("ghost"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestLoadWritesAndReadsTemplate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "fixctl.toml")
	if err := WriteTemplate(path, "fixctl", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteTemplate(path, "fixctl", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"default", "uat"}, cfg.ProfileNames()); diff != "" {
		t.Fatalf("profiles (-want +got):\n%s", diff)
	}
	def := cfg.Connections["default"]
	if def.Timeout != 5*time.Second || def.Heartbeat != 30 || !def.AutoLogon {
		t.Fatalf("unexpected default profile: %+v", def)
	}
	if len(cfg.Kinds) != 1 || cfg.Kinds[0].Defaults["59"] != "0" || len(cfg.Kinds[0].Conditions) != 1 {
		t.Fatalf("unexpected kinds: %+v", cfg.Kinds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestValidateRejects(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		data string
		want string
	}{
		{"no connections", `admin_addr = "127.0.0.1:7070"`, "no connections"},
		{"missing address", "[connections.a]\nsender_comp_id = \"S\"\ntarget_comp_id = \"T\"\n", "address is required"},
		{"missing target", "[connections.a]\naddress = \"h:1\"\nsender_comp_id = \"S\"\n", "target_comp_id is required"},
		{"bad admin addr", "admin_addr = \"nope\"\n[connections.a]\naddress = \"h:1\"\nsender_comp_id = \"S\"\ntarget_comp_id = \"T\"\n", "admin_addr invalid"},
		{"bad filter tag", "filter_tags = [8, 0]\n[connections.a]\naddress = \"h:1\"\nsender_comp_id = \"S\"\ntarget_comp_id = \"T\"\n", "filter_tags[1]"},
		{"bad kind", "[connections.a]\naddress = \"h:1\"\nsender_comp_id = \"S\"\ntarget_comp_id = \"T\"\n[[kinds]]\nname = \"x\"\n", "kinds invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestProfileSelection(t *testing.T) {
	testlog.Start(t)
	cfg, err := Decode("[connections.only]\naddress = \"h:1\"\nsender_comp_id = \"S\"\ntarget_comp_id = \"T\"\nauto_logon = false\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	c, name, err := cfg.Profile("")
	if err != nil || name != "only" {
		t.Fatalf("expected sole profile, got name=%q err=%v", name, err)
	}
	if c.AutoLogon {
		t.Fatalf("explicit auto_logon=false ignored")
	}
	if _, _, err := cfg.Profile("prod"); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestResolveAppliesEnvOverrides(t *testing.T) {
	testlog.Start(t)
	tmpl, _ := Template("fixctl")
	cfg, err := Decode(tmpl)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	o, err := LoadOverrides(map[string]string{
		"FIXCTL_ADDRESS":        "10.0.0.5:9880",
		"FIXCTL_HEARTBEAT":      "15",
		"FIXCTL_ADMIN_ADDR":     "0.0.0.0:7171",
		"FIXCTL_TRAFFIC_LOG":    "/tmp/session.log",
		"FIXCTL_SENDER_COMP_ID": "OVERRIDE",
		"FIXCTL_ADMIN_TOKEN":    "s3cret",
	})
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	r, err := cfg.Resolve("", o)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Name != "default" || r.AdminAddr != "0.0.0.0:7171" || r.AdminToken != "s3cret" {
		t.Fatalf("unexpected resolved: %+v", r)
	}
	s := r.Session
	if s.Address != "10.0.0.5:9880" || s.HeartBtInt != 15 || s.SenderCompID != "OVERRIDE" || s.TargetCompID != "EMS" {
		t.Fatalf("unexpected session config: %+v", s)
	}
	if s.TrafficLog != "/tmp/session.log" || s.ReadTimeout != 5*time.Second {
		t.Fatalf("unexpected session config: %+v", s)
	}
	if diff := cmp.Diff(session.DefaultFilterTags(), s.FilterTags); diff != "" {
		t.Fatalf("filter tags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"http://localhost:3000"}, r.CorsOrigins); diff != "" {
		t.Fatalf("cors (-want +got):\n%s", diff)
	}
	if cfg.Connections["default"].Address != "127.0.0.1:9878" {
		t.Fatalf("resolve mutated the file")
	}
}

func TestResolveProfileFromEnv(t *testing.T) {
	testlog.Start(t)
	tmpl, _ := Template("fixctl")
	cfg, err := Decode(tmpl)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	o, err := LoadOverrides(map[string]string{"FIXCTL_PROFILE": "uat"})
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	r, err := cfg.Resolve("default", o)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Name != "uat" || !r.Session.TLS.Enabled || r.Session.MaxConnectAttempts != 5 {
		t.Fatalf("unexpected uat session: %+v", r.Session)
	}
	if r.Session.SecurityMode != session.SecurityModeProduction || r.Session.ConnectTimeout != 10*time.Second {
		t.Fatalf("unexpected uat session: %+v", r.Session)
	}
}

func TestLoadOverridesRejectsBadInt(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadOverrides(map[string]string{"FIXCTL_HEARTBEAT": "soon"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRegistryIncludesConfigKinds(t *testing.T) {
	testlog.Start(t)
	tmpl, _ := Template("fixctl")
	cfg, err := Decode(tmpl)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	k, ok := reg.Lookup(schema.MsgTypeNewOrderSingle)
	if !ok || k.Name != "limit-day" {
		t.Fatalf("config kind should replace D, got %+v ok=%v", k, ok)
	}
	if _, ok := reg.ByName("new-order"); ok {
		t.Fatalf("replaced built-in still registered by name")
	}
	if _, ok := reg.Lookup(schema.MsgTypeLogon); !ok {
		t.Fatalf("built-in logon missing")
	}
}

func TestWriteTemplateOverwrite(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "fixctl.toml")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := WriteTemplate(path, "minimal", true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("load overwritten: %v", err)
	}
}
