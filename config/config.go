// Package config loads the server configuration from a .env file, an optional
// YAML file and the environment, in increasing order of precedence.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"
)

const (
	// PushExpo delivers notifications through the Expo push HTTP API.
	PushExpo = "expo"
	// PushFCM delivers notifications through Firebase Cloud Messaging.
	PushFCM = "fcm"

	// FileEnv names the environment variable pointing at the YAML config file.
	FileEnv = "SWIPE_CONFIG_FILE"
)

var (
	// ErrMissingCredentials is given when FIREBASE_CREDENTIALS is not set anywhere.
	ErrMissingCredentials = errors.New("missing FIREBASE_CREDENTIALS")
)

// Config is everything main needs to construct the server.
type Config struct {
	// Credentials is a base64 encoded service account JSON or a path to one.
	Credentials string `yaml:"firebase_credentials"`
	ProjectID   string `yaml:"project_id"`
	Port        string `yaml:"port"`

	PushProvider string `yaml:"push_provider"`
	ExpoPushURL  string `yaml:"expo_push_url"`

	// PubSubTopic receives match and message events; empty disables publishing.
	PubSubTopic string `yaml:"pubsub_topic"`

	CloudLogging bool   `yaml:"cloud_logging"`
	LogName      string `yaml:"log_name"`

	AllowedEmailDomains []string `yaml:"allowed_email_domains"`
	CORSOrigins         []string `yaml:"cors_origins"`
	ConversationPrefix  string   `yaml:"conversation_prefix"`
}

// DefaultConfig holds the values used when nothing overrides them.
var DefaultConfig = Config{
	Port:                "5000",
	PushProvider:        PushExpo,
	ExpoPushURL:         "https://exp.host/--/api/v2/push/send",
	LogName:             "swipe_server",
	AllowedEmailDomains: []string{"rutgers.edu", "scarletmail.rutgers.edu"},
	CORSOrigins:         []string{"*"},
}

// Load builds the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := DefaultConfig
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv(os.LookupEnv)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("FIREBASE_CREDENTIALS", &c.Credentials)
	str("GOOGLE_CLOUD_PROJECT", &c.ProjectID)
	str("PORT", &c.Port)
	str("PUSH_PROVIDER", &c.PushProvider)
	str("EXPO_PUSH_URL", &c.ExpoPushURL)
	str("PUBSUB_TOPIC", &c.PubSubTopic)
	str("LOG_NAME", &c.LogName)
	str("CONVERSATION_PREFIX", &c.ConversationPrefix)
	list("ALLOWED_EMAIL_DOMAINS", &c.AllowedEmailDomains)
	list("CORS_ORIGINS", &c.CORSOrigins)

	if v, ok := lookup("CLOUD_LOGGING"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CloudLogging = b
		}
	}
}

// normalize puts the email domains in the form signup compares against:
// lower case, without a leading "@".
func (c *Config) normalize() {
	domains := make([]string, 0, len(c.AllowedEmailDomains))
	for _, d := range c.AllowedEmailDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			domains = append(domains, d)
		}
	}
	c.AllowedEmailDomains = domains
	c.PushProvider = strings.ToLower(strings.TrimSpace(c.PushProvider))
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	if c.Credentials == "" {
		return ErrMissingCredentials
	}
	switch c.PushProvider {
	case PushExpo, PushFCM:
	default:
		return fmt.Errorf("unknown push provider %q", c.PushProvider)
	}
	if len(c.AllowedEmailDomains) == 0 {
		return errors.New("no allowed email domains configured")
	}
	return nil
}

// ClientOptions turns the credential setting into Google API client options.
// Base64 encoded JSON is tried first, anything else is treated as a file path.
func (c *Config) ClientOptions() []option.ClientOption {
	if raw, ok := decodeCredentials(c.Credentials); ok {
		return []option.ClientOption{option.WithCredentialsJSON(raw)}
	}
	return []option.ClientOption{option.WithCredentialsFile(c.Credentials)}
}

// ResolveProjectID returns the configured project, falling back to the
// project_id of the service account.
func (c *Config) ResolveProjectID() (string, error) {
	if c.ProjectID != "" {
		return c.ProjectID, nil
	}
	raw, ok := decodeCredentials(c.Credentials)
	if !ok {
		var err error
		raw, err = ioutil.ReadFile(c.Credentials)
		if err != nil {
			return "", fmt.Errorf("reading credentials file: %w", err)
		}
	}
	var sa struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &sa); err != nil {
		return "", fmt.Errorf("parsing credentials: %w", err)
	}
	if sa.ProjectID == "" {
		return "", errors.New("credentials carry no project_id and GOOGLE_CLOUD_PROJECT is unset")
	}
	return sa.ProjectID, nil
}

func decodeCredentials(s string) ([]byte, bool) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil || !json.Valid(raw) {
		return nil, false
	}
	return raw, true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
