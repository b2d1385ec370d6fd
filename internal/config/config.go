package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvVersion  = "UNITY_VERSION"
	EnvRoot     = "UNITY_ROOT"
	EnvLogLevel = "UNITYRUNNER_LOG_LEVEL"
)

// Config captures how the agent finds, licenses and runs the editor.
type Config struct {
	Version   int             `yaml:"version"`
	Editor    EditorConfig    `yaml:"editor"`
	Detection DetectionConfig `yaml:"detection"`
	Virtual   VirtualConfig   `yaml:"virtual"`
	License   LicenseConfig   `yaml:"license"`
	Build     BuildConfig     `yaml:"build"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EditorConfig selects the editor. An empty version means the newest
// installation; a root bypasses detection.
type EditorConfig struct {
	Version string `yaml:"version"`
	Root    string `yaml:"root"`
}

// DetectionConfig tunes installation discovery.
type DetectionConfig struct {
	Home          []string      `yaml:"home"`
	HintPaths     []string      `yaml:"hint_paths"`
	HelperPath    string        `yaml:"helper_path"`
	HelperTimeout time.Duration `yaml:"helper_timeout"`
	Concurrency   int           `yaml:"concurrency"`
	// ManifestFile overrides the detection snapshot location.
	ManifestFile string `yaml:"manifest_file"`
}

// VirtualConfig enables detection inside a virtual context.
type VirtualConfig struct {
	Enabled  bool   `yaml:"enabled"`
	RootHint string `yaml:"root_hint"`
	Shell    string `yaml:"shell"`
	// OS of the virtual context when it differs from the host.
	OS string `yaml:"os"`
}

// LicenseConfig holds activation settings. Secrets may also come from the
// environment through ${VAR} references.
type LicenseConfig struct {
	Type        string `yaml:"type"`
	Scope       string `yaml:"scope"`
	Serial      string `yaml:"serial"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Content     string `yaml:"content"`
	ContentFile string `yaml:"content_file"`
}

// BuildConfig holds the editor command line parameters.
type BuildConfig struct {
	ProjectPath    string   `yaml:"project_path"`
	BuildTarget    string   `yaml:"build_target"`
	PlayerFlag     string   `yaml:"player_flag"`
	PlayerPath     string   `yaml:"player_path"`
	NoGraphics     *bool    `yaml:"no_graphics,omitempty"`
	SilentCrashes  bool     `yaml:"silent_crashes"`
	ExecuteMethod  string   `yaml:"execute_method"`
	ExtraArgs      string   `yaml:"extra_args"`
	RunTests       bool     `yaml:"run_tests"`
	TestPlatform   string   `yaml:"test_platform"`
	TestResults    string   `yaml:"test_results"`
	TestCategories []string `yaml:"test_categories"`
	TestNames      []string `yaml:"test_names"`
	LogFile        string   `yaml:"log_file"`
	CleanedLogFile bool     `yaml:"cleaned_log_file"`
	CacheServer    string   `yaml:"cache_server"`
}

// NoGraphicsValue returns the effective no_graphics flag applying defaults.
func (b BuildConfig) NoGraphicsValue() bool {
	if b.NoGraphics == nil {
		return true
	}
	return *b.NoGraphics
}

// LoggingConfig controls the agent log and output classification.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	// RulesFile holds <line level="..." message="..."/> records.
	RulesFile string `yaml:"rules_file"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Detection: DetectionConfig{
			HelperTimeout: 3 * time.Second,
			Concurrency:   4,
		},
		License: LicenseConfig{
			Scope: "build_step",
		},
		Build: BuildConfig{
			NoGraphics: boolPtr(true),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Detection.HelperTimeout <= 0 {
		c.Detection.HelperTimeout = defaults.Detection.HelperTimeout
	}
	if c.Detection.Concurrency <= 0 {
		c.Detection.Concurrency = defaults.Detection.Concurrency
	}
	if strings.TrimSpace(c.License.Scope) == "" {
		c.License.Scope = defaults.License.Scope
	}
	if c.Build.NoGraphics == nil {
		c.Build.NoGraphics = boolPtr(true)
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// ApplyEnv applies environment overrides and expands ${VAR} references in
// the license secrets.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvVersion)); v != "" {
		c.Editor.Version = v
	}
	if v := strings.TrimSpace(getenv(EnvRoot)); v != "" {
		c.Editor.Root = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	for _, field := range []*string{&c.License.Serial, &c.License.Username, &c.License.Password, &c.License.Content} {
		*field = os.Expand(*field, getenv)
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// Redacted returns a copy with license secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "*******"
	}
	c.License.Serial = mask(c.License.Serial)
	c.License.Password = mask(c.License.Password)
	c.License.Content = mask(c.License.Content)
	return c
}

func boolPtr(v bool) *bool {
	return &v
}
