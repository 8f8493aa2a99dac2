// Package config loads and writes JANE configuration.
//
// Values are layered: built-in defaults, then the user file
// (~/.jane/config.toml), then the project file (<project>/.jane/config.toml),
// then JANE_* environment variables, then command-line flag overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const (
	dirName   = ".jane"
	fileName  = "config.toml"
	envPrefix = "JANE"
)

// Config is the fully merged configuration.
type Config struct {
	Assistant     AssistantConfig     `toml:"assistant" mapstructure:"assistant"`
	Notes         NotesConfig         `toml:"notes" mapstructure:"notes"`
	Chat          ChatConfig          `toml:"chat" mapstructure:"chat"`
	Daemon        DaemonConfig        `toml:"daemon" mapstructure:"daemon"`
	Notifications NotificationsConfig `toml:"notifications" mapstructure:"notifications"`
}

// AssistantConfig controls the classifier, controller and speech output.
type AssistantConfig struct {
	WakeWord          string `toml:"wake_word" mapstructure:"wake_word"`
	ShutdownCountdown int    `toml:"shutdown_countdown" mapstructure:"shutdown_countdown"`
	HistorySize       int    `toml:"history_size" mapstructure:"history_size"`
	SpeakEnabled      bool   `toml:"speak_enabled" mapstructure:"speak_enabled"`
	TTSCommand        string `toml:"tts_command" mapstructure:"tts_command"`
}

// NotesConfig selects where save_note writes.
type NotesConfig struct {
	Backend      string `toml:"backend" mapstructure:"backend"`
	FilePath     string `toml:"file_path" mapstructure:"file_path"`
	DatabasePath string `toml:"database_path" mapstructure:"database_path"`
}

// ChatConfig configures the Gemini chat backend.
type ChatConfig struct {
	Model          string   `toml:"model" mapstructure:"model"`
	APIKeyEnv      []string `toml:"api_key_env" mapstructure:"api_key_env"`
	TimeoutSeconds int      `toml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Timeout returns TimeoutSeconds as a duration.
func (c ChatConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DaemonConfig configures the long-running server.
type DaemonConfig struct {
	IPCSocket      string   `toml:"ipc_socket" mapstructure:"ipc_socket"`
	TCPAddr        string   `toml:"tcp_addr" mapstructure:"tcp_addr"`
	TCPRequireAuth bool     `toml:"tcp_require_auth" mapstructure:"tcp_require_auth"`
	TCPAuthToken   string   `toml:"tcp_auth_token" mapstructure:"tcp_auth_token"`
	TCPAllowedIPs  []string `toml:"tcp_allowed_ips" mapstructure:"tcp_allowed_ips"`
	HTTPAddr       string   `toml:"http_addr" mapstructure:"http_addr"`
	LogLevel       string   `toml:"log_level" mapstructure:"log_level"`
	PIDFile        string   `toml:"pid_file" mapstructure:"pid_file"`
}

// NotificationsConfig controls desktop notifications for queued commands.
type NotificationsConfig struct {
	DesktopEnabled bool `toml:"desktop_enabled" mapstructure:"desktop_enabled"`
}

// LoadOptions controls where Load looks for files and which overrides win.
type LoadOptions struct {
	// ProjectDir defaults to the working directory.
	ProjectDir string
	// ConfigPath replaces the project config file when set.
	ConfigPath string
	// FlagOverrides are applied last, keyed by "section.key".
	FlagOverrides map[string]any
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Assistant: AssistantConfig{
			WakeWord:          "hey jane",
			ShutdownCountdown: 10,
			HistorySize:       300,
			SpeakEnabled:      false,
			TTSCommand:        "",
		},
		Notes: NotesConfig{
			Backend:      "file",
			FilePath:     "jane_notes.txt",
			DatabasePath: filepath.Join(dirName, "notes.db"),
		},
		Chat: ChatConfig{
			Model:          "gemini-1.5-flash",
			APIKeyEnv:      []string{"GEMINI_API_KEY", "GEMENI_API_KEY", "GOOGLE_API_KEY"},
			TimeoutSeconds: 30,
		},
		Daemon: DaemonConfig{
			IPCSocket:      "",
			TCPAddr:        "",
			TCPRequireAuth: true,
			TCPAuthToken:   "",
			TCPAllowedIPs:  []string{},
			HTTPAddr:       "127.0.0.1:8000",
			LogLevel:       "info",
			PIDFile:        "",
		},
		Notifications: NotificationsConfig{
			DesktopEnabled: true,
		},
	}
}

// Load merges every configuration layer and validates the result.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v)

	projectDir := opts.ProjectDir
	if projectDir == "" {
		if wd, err := os.Getwd(); err == nil {
			projectDir = wd
		}
	}

	userPath, projectPath := ConfigPaths(projectDir, opts.ConfigPath)
	if err := mergeConfigFile(v, userPath); err != nil {
		return Config{}, err
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range opts.FlagOverrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults seeds every known key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	for _, key := range orderedKeys {
		val, _ := GetValue(DefaultConfig(), key)
		v.SetDefault(key, val)
	}
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	v.SetConfigType("toml")
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ConfigPaths returns the user and project config file paths. A non-empty
// flagPath replaces the project path.
func ConfigPaths(projectDir, flagPath string) (userPath, projectPath string) {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		userPath = filepath.Join(home, dirName, fileName)
	}
	return userPath, projectConfigPath(projectDir, flagPath)
}

func projectConfigPath(projectDir, flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if projectDir == "" {
		return filepath.Join(dirName, fileName)
	}
	return filepath.Join(projectDir, dirName, fileName)
}

// Validate reports every invalid field at once.
func Validate(cfg Config) error {
	var problems []string
	if strings.TrimSpace(cfg.Assistant.WakeWord) == "" {
		problems = append(problems, "assistant.wake_word must not be empty")
	}
	if cfg.Assistant.ShutdownCountdown < 1 {
		problems = append(problems, "assistant.shutdown_countdown must be >= 1")
	}
	if cfg.Assistant.HistorySize < 1 {
		problems = append(problems, "assistant.history_size must be >= 1")
	}
	switch strings.ToLower(cfg.Notes.Backend) {
	case "file", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("notes.backend must be file or sqlite, got %q", cfg.Notes.Backend))
	}
	if cfg.Chat.TimeoutSeconds < 1 {
		problems = append(problems, "chat.timeout_seconds must be >= 1")
	}
	if strings.TrimSpace(cfg.Chat.Model) == "" {
		problems = append(problems, "chat.model must not be empty")
	}
	switch strings.ToLower(cfg.Daemon.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("daemon.log_level must be debug, info, warn or error, got %q", cfg.Daemon.LogLevel))
	}
	if cfg.Daemon.TCPAddr != "" && cfg.Daemon.TCPRequireAuth && cfg.Daemon.TCPAuthToken == "" {
		problems = append(problems, "daemon.tcp_auth_token is required when tcp_require_auth is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WriteValue sets key in the TOML file at path, creating the file and any
// missing tables.
func WriteValue(path, key string, value any) error {
	if path == "" {
		return errors.New("config path is required")
	}
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return fmt.Errorf("key %q must be section.name", key)
	}

	root := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(data), &root); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read config %s: %w", path, err)
	}

	table := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := table[part]
		if !ok {
			child := map[string]any{}
			table[part] = child
			table = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %q is not a table", part)
		}
		table = child
	}
	table[parts[len(parts)-1]] = value

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(root); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
