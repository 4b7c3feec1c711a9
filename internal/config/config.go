// Package config assembles the Config tree from an on-disk config file
// merged with environment overrides, the way the teacher's env-first
// loader does it but generalized to a layered file+env merge.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// envPrefix is the namespace every override variable lives under:
// AUTOPULSE__SECTION__KEY. A __FILE suffix means "read this path, the
// file's contents are the real value" (for secrets mounted from files).
const envPrefix = "AUTOPULSE"

// App holds process-level settings: listen port, data directory, base path.
type App struct {
	Port     string `json:"port" yaml:"port" toml:"port"`
	DataDir  string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	BasePath string `json:"base_path" yaml:"base_path" toml:"base_path"`
}

// Auth holds HTTP Basic auth credentials for the protected routes.
// Password is stored bcrypt-hashed in PasswordHash once loaded;
// PasswordPlain keeps the plaintext value read from config or env.
type Auth struct {
	Enabled       bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Username      string `json:"username" yaml:"username" toml:"username"`
	PasswordPlain string `json:"password" yaml:"password" toml:"password"`
	PasswordHash  string `json:"-" yaml:"-" toml:"-"`
}

// Opts holds the reconciliation-loop tunables from §6.4.
type Opts struct {
	CheckPath        bool          `json:"check_path" yaml:"check_path" toml:"check_path"`
	MaxRetries       int           `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	DefaultTimerWait time.Duration `json:"default_timer_wait" yaml:"default_timer_wait" toml:"default_timer_wait"`
	CleanupDays      int           `json:"cleanup_days" yaml:"cleanup_days" toml:"cleanup_days"`
	LogFile          string        `json:"log_file" yaml:"log_file" toml:"log_file"`
	LogFileRollover  string        `json:"log_file_rollover" yaml:"log_file_rollover" toml:"log_file_rollover"`
}

// RewriteRule is one regex substitution pair; a Rewrite list applies
// them in order (§3.3).
type RewriteRule struct {
	From string `json:"from" yaml:"from" toml:"from"`
	To   string `json:"to" yaml:"to" toml:"to"`
}

// Timer gives a producer or target its own debounce wait, overriding
// opts.default_timer_wait.
type Timer struct {
	WaitSeconds int `json:"wait_seconds" yaml:"wait_seconds" toml:"wait_seconds"`
}

// Trigger is one producer's configuration entry (§3.2).
type Trigger struct {
	Type     string        `json:"type" yaml:"type" toml:"type"`
	Rewrite  []RewriteRule `json:"rewrite" yaml:"rewrite" toml:"rewrite"`
	Timer    *Timer        `json:"timer" yaml:"timer" toml:"timer"`
	Excludes []string      `json:"excludes" yaml:"excludes" toml:"excludes"`

	// Extra carries type-specific fields (e.g. manual's auth token, a_train's
	// path list) that don't warrant a field per trigger type here.
	Extra map[string]any `json:"-" yaml:"-" toml:"-"`
}

// Target is one consumer's configuration entry (§3.2).
type Target struct {
	Type    string        `json:"type" yaml:"type" toml:"type"`
	Rewrite []RewriteRule `json:"rewrite" yaml:"rewrite" toml:"rewrite"`
	Timer   *Timer        `json:"timer" yaml:"timer" toml:"timer"`

	URL      string `json:"url" yaml:"url" toml:"url"`
	Token    string `json:"token" yaml:"token" toml:"token"`
	Username string `json:"username" yaml:"username" toml:"username"`
	Password string `json:"password" yaml:"password" toml:"password"`

	// Path or Raw selects a command target's exec mode; exactly one
	// must be set.
	Path    string        `json:"path" yaml:"path" toml:"path"`
	Raw     string        `json:"raw" yaml:"raw" toml:"raw"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`

	// RefreshMetadata toggles Emby/Jellyfin's metadata refresh pass
	// alongside the library scan.
	RefreshMetadata bool `json:"refresh_metadata" yaml:"refresh_metadata" toml:"refresh_metadata"`
}

// Webhook is one outbound notification sink entry (§4.10).
type Webhook struct {
	Type        string        `json:"type" yaml:"type" toml:"type"`
	URL         string        `json:"url" yaml:"url" toml:"url"`
	Timer       *Timer        `json:"timer" yaml:"timer" toml:"timer"`
	BatchWindow time.Duration `json:"batch_window" yaml:"batch_window" toml:"batch_window"`
}

// Config is the whole merged configuration tree (§6.4).
type Config struct {
	App      App                `json:"app" yaml:"app" toml:"app"`
	Auth     Auth               `json:"auth" yaml:"auth" toml:"auth"`
	Opts     Opts               `json:"opts" yaml:"opts" toml:"opts"`
	Triggers map[string]Trigger `json:"triggers" yaml:"triggers" toml:"triggers"`
	Targets  map[string]Target  `json:"targets" yaml:"targets" toml:"targets"`
	Webhooks map[string]Webhook `json:"webhooks" yaml:"webhooks" toml:"webhooks"`
	Anchors  []string           `json:"anchors" yaml:"anchors" toml:"anchors"`
}

func defaults() *Config {
	return &Config{
		App: App{
			Port:     "8980",
			DataDir:  "./data",
			BasePath: "/",
		},
		Auth: Auth{
			Enabled:       true,
			Username:      "admin",
			PasswordPlain: "password",
		},
		Opts: Opts{
			CheckPath:        false,
			MaxRetries:       5,
			DefaultTimerWait: 60 * time.Second,
			CleanupDays:      10,
			LogFileRollover:  "never",
		},
		Triggers: map[string]Trigger{},
		Targets:  map[string]Target{},
		Webhooks: map[string]Webhook{},
		Anchors:  []string{},
	}
}

// global singleton, the way the teacher's internal/config.cfg works.
var cfg *Config

// Load reads config.{json,yaml,toml} from dir (if present), applies
// environment overrides, and stores the result as the process singleton.
// Should be called once at startup.
func Load(dir string) (*Config, error) {
	c := defaults()

	path, format := findConfigFile(dir)
	if path != "" {
		if err := loadFile(c, path, format); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := applyEnv(c); err != nil {
		return nil, fmt.Errorf("config: applying environment overrides: %w", err)
	}

	if c.App.DataDir != "" {
		if abs, err := filepath.Abs(c.App.DataDir); err == nil {
			c.App.DataDir = abs
		}
		if err := os.MkdirAll(c.App.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("config: creating data dir %s: %w", c.App.DataDir, err)
		}
	}

	switch c.Opts.LogFileRollover {
	case "daily", "hourly", "minutely", "never":
	default:
		c.Opts.LogFileRollover = "never"
	}

	if c.Auth.Enabled && c.Auth.PasswordPlain != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Auth.PasswordPlain), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("config: hashing auth password: %w", err)
		}
		c.Auth.PasswordHash = string(hash)
	}

	cfg = c
	return c, nil
}

// CheckPassword reports whether plain matches the configured (hashed)
// auth password, via constant-time bcrypt comparison (§6.1 HTTP Basic
// auth).
func (c *Config) CheckPassword(plain string) bool {
	if c.Auth.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.Auth.PasswordHash), []byte(plain)) == nil
}

func findConfigFile(dir string) (path string, format string) {
	for _, candidate := range []struct {
		name   string
		format string
	}{
		{"config.json", "json"},
		{"config.yaml", "yaml"},
		{"config.yml", "yaml"},
		{"config.toml", "toml"},
	} {
		p := filepath.Join(dir, candidate.name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, candidate.format
		}
	}
	return "", ""
}

func loadFile(c *Config, path, format string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return json.Unmarshal(raw, c)
	case "yaml":
		return yaml.Unmarshal(raw, c)
	case "toml":
		return toml.Unmarshal(raw, c)
	default:
		return fmt.Errorf("unrecognized config format for %s", path)
	}
}

// applyEnv walks AUTOPULSE__SECTION__KEY variables and overlays the subset
// of fields it knows how to address directly. Section-scoped maps
// (triggers/targets/webhooks) are file-configured only; env overrides
// target the flat app/auth/opts sections, matching the sections actually
// named in §6.4 as environment-overridable scalars.
func applyEnv(c *Config) error {
	get := func(key string) (string, bool) {
		return resolveEnv(envPrefix + "__" + key)
	}

	if v, ok := get("APP__PORT"); ok {
		c.App.Port = v
	}
	if v, ok := get("APP__DATA_DIR"); ok {
		c.App.DataDir = v
	}
	if v, ok := get("APP__BASE_PATH"); ok {
		c.App.BasePath = v
	}
	if v, ok := get("AUTH__ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("auth.enabled: %w", err)
		}
		c.Auth.Enabled = b
	}
	if v, ok := get("AUTH__USERNAME"); ok {
		c.Auth.Username = v
	}
	if v, ok := get("AUTH__PASSWORD"); ok {
		c.Auth.PasswordPlain = v
	}
	if v, ok := get("OPTS__CHECK_PATH"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("opts.check_path: %w", err)
		}
		c.Opts.CheckPath = b
	}
	if v, ok := get("OPTS__MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("opts.max_retries: %w", err)
		}
		c.Opts.MaxRetries = n
	}
	if v, ok := get("OPTS__DEFAULT_TIMER_WAIT"); ok {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("opts.default_timer_wait: %w", err)
		}
		c.Opts.DefaultTimerWait = time.Duration(secs) * time.Second
	}
	if v, ok := get("OPTS__CLEANUP_DAYS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("opts.cleanup_days: %w", err)
		}
		c.Opts.CleanupDays = n
	}
	if v, ok := get("OPTS__LOG_FILE"); ok {
		c.Opts.LogFile = v
	}
	if v, ok := get("OPTS__LOG_FILE_ROLLOVER"); ok {
		c.Opts.LogFileRollover = v
	}
	return nil
}

// resolveEnv reads key from the environment; if key+"__FILE" is set
// instead, it reads the named file and returns its trimmed contents.
func resolveEnv(key string) (string, bool) {
	if v, ok := os.LookupEnv(key + "__FILE"); ok {
		raw, err := os.ReadFile(v)
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(string(raw)), true
	}
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	return "", false
}

// Get returns the process-wide config. Panics if Load hasn't run, matching
// the teacher's internal/config.Get() contract.
func Get() *Config {
	if cfg == nil {
		panic("config.Load() must be called before config.Get()")
	}
	return cfg
}

// SetForTesting installs c as the process-wide config without going
// through Load. Test code only.
func SetForTesting(c *Config) {
	cfg = c
}

// NewTestConfig returns a minimal Config suitable for unit tests.
func NewTestConfig() *Config {
	c := defaults()
	c.App.DataDir = "/tmp/autopulse-test"
	c.Auth.Username = "test"
	c.Auth.PasswordPlain = "test"
	hash, _ := bcrypt.GenerateFromPassword([]byte("test"), bcrypt.MinCost)
	c.Auth.PasswordHash = string(hash)
	return c
}

// DatabasePath is the sqlite file path inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.App.DataDir, "autopulse.db")
}

// LogDir is the log directory inside the data directory.
func (c *Config) LogDir() string {
	return filepath.Join(c.App.DataDir, "logs")
}
