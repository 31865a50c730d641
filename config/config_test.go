package config

import (
	"encoding/base64"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg := DefaultConfig
	cfg.loadEnv(envLookup(map[string]string{
		"FIREBASE_CREDENTIALS":  "creds.json",
		"PORT":                  "8080",
		"ALLOWED_EMAIL_DOMAINS": "a.edu, b.edu,,",
		"CLOUD_LOGGING":         "true",
		"PUSH_PROVIDER":         PushFCM,
	}))

	if cfg.Credentials != "creds.json" {
		t.Errorf("Credentials = %q, want creds.json", cfg.Credentials)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if want := []string{"a.edu", "b.edu"}; !reflect.DeepEqual(cfg.AllowedEmailDomains, want) {
		t.Errorf("AllowedEmailDomains = %v, want %v", cfg.AllowedEmailDomains, want)
	}
	if !cfg.CloudLogging {
		t.Error("CloudLogging = false, want true")
	}
	if cfg.ExpoPushURL != DefaultConfig.ExpoPushURL {
		t.Errorf("ExpoPushURL changed to %q without an override", cfg.ExpoPushURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate gave error %v when not expecting one", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "missing credentials is fatal",
			mutate:  func(c *Config) { c.Credentials = "" },
			wantErr: true,
		},
		{
			name:    "unknown push provider",
			mutate:  func(c *Config) { c.PushProvider = "pigeon" },
			wantErr: true,
		},
		{
			name:    "empty allow-list",
			mutate:  func(c *Config) { c.AllowedEmailDomains = nil },
			wantErr: true,
		},
		{
			name:   "defaults with credentials",
			mutate: func(c *Config) {},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig
			cfg.Credentials = "creds.json"
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %t", err, tc.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "config.yaml")
	content := []byte("port: \"9000\"\npubsub_topic: swipe_events\nallowed_email_domains:\n  - example.edu\n")
	if err := ioutil.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig
	if err := cfg.loadFile(path); err != nil {
		t.Fatalf("loadFile gave error %v", err)
	}
	if cfg.Port != "9000" || cfg.PubSubTopic != "swipe_events" {
		t.Errorf("loadFile gave port %q topic %q", cfg.Port, cfg.PubSubTopic)
	}
	if want := []string{"example.edu"}; !reflect.DeepEqual(cfg.AllowedEmailDomains, want) {
		t.Errorf("AllowedEmailDomains = %v, want %v", cfg.AllowedEmailDomains, want)
	}
	if cfg.LogName != DefaultConfig.LogName {
		t.Errorf("LogName = %q, want default %q", cfg.LogName, DefaultConfig.LogName)
	}
}

func TestResolveProjectID(t *testing.T) {
	sa := `{"type":"service_account","project_id":"swipe-test"}`
	cfg := DefaultConfig
	cfg.Credentials = base64.StdEncoding.EncodeToString([]byte(sa))

	got, err := cfg.ResolveProjectID()
	if err != nil {
		t.Fatalf("ResolveProjectID gave error %v", err)
	}
	if got != "swipe-test" {
		t.Errorf("ResolveProjectID = %q, want swipe-test", got)
	}

	cfg.ProjectID = "explicit"
	if got, _ := cfg.ResolveProjectID(); got != "explicit" {
		t.Errorf("ResolveProjectID = %q, want explicit", got)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := DefaultConfig
	cfg.Credentials = base64.StdEncoding.EncodeToString([]byte(`{"project_id":"p"}`))
	if got := len(cfg.ClientOptions()); got != 1 {
		t.Errorf("ClientOptions gave %d options, want 1", got)
	}
	cfg.Credentials = "/path/to/sa.json"
	if got := len(cfg.ClientOptions()); got != 1 {
		t.Errorf("ClientOptions gave %d options, want 1", got)
	}
}

func TestLoadNormalizesDomains(t *testing.T) {
	for key, value := range map[string]string{
		"FIREBASE_CREDENTIALS":  "creds.json",
		"ALLOWED_EMAIL_DOMAINS": "Rutgers.EDU, @ScarletMail.rutgers.edu",
		"PUSH_PROVIDER":         " Expo ",
	} {
		old, had := os.LookupEnv(key)
		os.Setenv(key, value)
		key := key
		t.Cleanup(func() {
			if had {
				os.Setenv(key, old)
			} else {
				os.Unsetenv(key)
			}
		})
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load gave error %v when not expecting one", err)
	}
	if want := []string{"rutgers.edu", "scarletmail.rutgers.edu"}; !reflect.DeepEqual(cfg.AllowedEmailDomains, want) {
		t.Errorf("AllowedEmailDomains = %v, want %v", cfg.AllowedEmailDomains, want)
	}
	if cfg.PushProvider != PushExpo {
		t.Errorf("PushProvider = %q, want %q", cfg.PushProvider, PushExpo)
	}
}
