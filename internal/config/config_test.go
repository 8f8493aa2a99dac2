package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(DefaultConfig) unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Assistant.WakeWord = "  "
	cfg.Assistant.ShutdownCountdown = 0
	cfg.Assistant.HistorySize = 0
	cfg.Notes.Backend = "redis"
	cfg.Chat.TimeoutSeconds = 0
	cfg.Chat.Model = ""
	cfg.Daemon.LogLevel = "loud"
	cfg.Daemon.TCPAddr = "127.0.0.1:9000"
	cfg.Daemon.TCPRequireAuth = true
	cfg.Daemon.TCPAuthToken = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "config validation failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"wake_word", "shutdown_countdown", "history_size", "notes.backend", "timeout_seconds", "chat.model", "log_level", "tcp_auth_token"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestValidate_BackendCaseInsensitive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notes.Backend = "SQLite"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_Precedence_DefaultsUserProjectEnvFlags(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	project := t.TempDir()

	userPath := filepath.Join(home, ".jane", "config.toml")
	if err := WriteValue(userPath, "assistant.shutdown_countdown", 3); err != nil {
		t.Fatalf("WriteValue user: %v", err)
	}
	if err := WriteValue(userPath, "assistant.wake_word", "computer"); err != nil {
		t.Fatalf("WriteValue user: %v", err)
	}

	projectPath := filepath.Join(project, ".jane", "config.toml")
	if err := WriteValue(projectPath, "assistant.shutdown_countdown", 4); err != nil {
		t.Fatalf("WriteValue project: %v", err)
	}

	t.Setenv("JANE_ASSISTANT_SHUTDOWN_COUNTDOWN", "5")

	cfg, err := Load(LoadOptions{
		ProjectDir: project,
		FlagOverrides: map[string]any{
			"assistant.shutdown_countdown": 6,
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Assistant.ShutdownCountdown != 6 {
		t.Fatalf("shutdown_countdown=%d want 6", cfg.Assistant.ShutdownCountdown)
	}
	// The user layer survives where nothing overrides it.
	if cfg.Assistant.WakeWord != "computer" {
		t.Fatalf("wake_word=%q want computer", cfg.Assistant.WakeWord)
	}
	if cfg.Assistant.HistorySize != 300 {
		t.Fatalf("history_size=%d want default 300", cfg.Assistant.HistorySize)
	}
}

func TestLoad_EnvOverridesProject(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	project := t.TempDir()

	if err := WriteValue(filepath.Join(project, ".jane", "config.toml"), "notes.backend", "file"); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	t.Setenv("JANE_NOTES_BACKEND", "sqlite")

	cfg, err := Load(LoadOptions{ProjectDir: project})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notes.Backend != "sqlite" {
		t.Fatalf("backend=%q want sqlite", cfg.Notes.Backend)
	}
}

func TestLoad_ConfigPathReplacesProjectFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	project := t.TempDir()

	if err := WriteValue(filepath.Join(project, ".jane", "config.toml"), "chat.model", "ignored"); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	override := filepath.Join(t.TempDir(), "alt.toml")
	if err := WriteValue(override, "chat.model", "gemini-2.0-flash"); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}

	cfg, err := Load(LoadOptions{ProjectDir: project, ConfigPath: override})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chat.Model != "gemini-2.0-flash" {
		t.Fatalf("model=%q", cfg.Chat.Model)
	}
}

func TestLoad_InvalidEnvValueErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("JANE_ASSISTANT_SHUTDOWN_COUNTDOWN", "not-an-int")
	if _, err := Load(LoadOptions{ProjectDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_ProjectDirEmptyUsesCWD(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	project := t.TempDir()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})
	if err := os.Chdir(project); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	projectPath := filepath.Join(project, ".jane", "config.toml")
	if err := WriteValue(projectPath, "assistant.history_size", 9); err != nil {
		t.Fatalf("WriteValue project: %v", err)
	}

	cfg, err := Load(LoadOptions{ProjectDir: ""})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Assistant.HistorySize != 9 {
		t.Fatalf("history_size=%d want 9", cfg.Assistant.HistorySize)
	}
}

func TestMergeConfigFile(t *testing.T) {
	v := newTestViper()

	if err := mergeConfigFile(v, ""); err != nil {
		t.Fatalf("mergeConfigFile(empty): %v", err)
	}

	if err := mergeConfigFile(v, filepath.Join(t.TempDir(), "missing.toml")); err != nil {
		t.Fatalf("mergeConfigFile(missing): %v", err)
	}

	if err := mergeConfigFile(v, t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("assistant = [\n"), 0644); err != nil {
		t.Fatalf("write invalid toml: %v", err)
	}
	if err := mergeConfigFile(v, path); err == nil {
		t.Fatalf("expected error for invalid toml")
	}
}

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestSetDefaultsSeedsEveryKey(t *testing.T) {
	v := newTestViper()
	for _, key := range Keys() {
		if !v.IsSet(key) {
			t.Errorf("default for %q not set", key)
		}
	}
	if got := v.GetInt("assistant.shutdown_countdown"); got != 10 {
		t.Fatalf("shutdown_countdown default=%d", got)
	}
}

func TestConfigPathsAndProjectConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	u, p := ConfigPaths("/proj", "")
	if u != filepath.Join(home, ".jane", "config.toml") {
		t.Fatalf("unexpected user path: %q", u)
	}
	if p != filepath.Join("/proj", ".jane", "config.toml") {
		t.Fatalf("unexpected project path: %q", p)
	}

	if got := projectConfigPath("", ""); got != filepath.Join(".jane", "config.toml") {
		t.Fatalf("projectConfigPath(empty)=%q", got)
	}
	if got := projectConfigPath("/proj", "/override.toml"); got != "/override.toml" {
		t.Fatalf("projectConfigPath(override)=%q", got)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("assistant.shutdown_countdown", "7")
	if err != nil {
		t.Fatalf("ParseValue int: %v", err)
	}
	if v.(int) != 7 {
		t.Fatalf("unexpected value: %#v", v)
	}

	v, err = ParseValue("assistant.speak_enabled", "true")
	if err != nil {
		t.Fatalf("ParseValue bool: %v", err)
	}
	if v.(bool) != true {
		t.Fatalf("unexpected value: %#v", v)
	}

	v, err = ParseValue("daemon.tcp_allowed_ips", "10.0.0.1, , 10.0.0.2")
	if err != nil {
		t.Fatalf("ParseValue slice: %v", err)
	}
	if !reflect.DeepEqual(v, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Fatalf("unexpected slice: %#v", v)
	}

	v, err = ParseValue("daemon.ipc_socket", "/tmp/jane.sock")
	if err != nil {
		t.Fatalf("ParseValue string: %v", err)
	}
	if v.(string) != "/tmp/jane.sock" {
		t.Fatalf("unexpected value: %#v", v)
	}

	if _, err := ParseValue("assistant.history_size", "lots"); err == nil {
		t.Fatalf("expected error for bad int")
	}
	if _, err := ParseValue("notifications.desktop_enabled", "maybe"); err == nil {
		t.Fatalf("expected error for bad bool")
	}
	if _, err := parseValueByKind("x", valueKind(123)); err == nil {
		t.Fatalf("expected error for unsupported value kind")
	}
	if _, err := ParseValue("nope.nope", "x"); err == nil {
		t.Fatalf("expected unsupported key error")
	}
}

func TestGetValue(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		key  string
		want any
	}{
		{"assistant.wake_word", cfg.Assistant.WakeWord},
		{"assistant.shutdown_countdown", cfg.Assistant.ShutdownCountdown},
		{"assistant.history_size", cfg.Assistant.HistorySize},
		{"assistant.speak_enabled", cfg.Assistant.SpeakEnabled},
		{"assistant.tts_command", cfg.Assistant.TTSCommand},

		{"notes.backend", cfg.Notes.Backend},
		{"notes.file_path", cfg.Notes.FilePath},
		{"notes.database_path", cfg.Notes.DatabasePath},

		{"chat.model", cfg.Chat.Model},
		{"chat.api_key_env", cfg.Chat.APIKeyEnv},
		{"chat.timeout_seconds", cfg.Chat.TimeoutSeconds},

		{"daemon.ipc_socket", cfg.Daemon.IPCSocket},
		{"daemon.tcp_addr", cfg.Daemon.TCPAddr},
		{"daemon.tcp_require_auth", cfg.Daemon.TCPRequireAuth},
		{"daemon.tcp_auth_token", cfg.Daemon.TCPAuthToken},
		{"daemon.tcp_allowed_ips", cfg.Daemon.TCPAllowedIPs},
		{"daemon.http_addr", cfg.Daemon.HTTPAddr},
		{"daemon.log_level", cfg.Daemon.LogLevel},
		{"daemon.pid_file", cfg.Daemon.PIDFile},

		{"notifications.desktop_enabled", cfg.Notifications.DesktopEnabled},

		{"assistant", cfg.Assistant},
		{"notes", cfg.Notes},
		{"chat", cfg.Chat},
		{"daemon", cfg.Daemon},
		{"notifications", cfg.Notifications},
	}

	for _, tc := range cases {
		got, ok := GetValue(cfg, tc.key)
		if !ok {
			t.Fatalf("GetValue(%q) not found", tc.key)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("GetValue(%q)=%#v want %#v", tc.key, got, tc.want)
		}
	}

	if _, ok := GetValue(cfg, ""); ok {
		t.Fatalf("expected empty key to be not found")
	}
	for _, key := range []string{"nope", "assistant.nope", "notes.nope", "chat.nope", "daemon.nope", "notifications.nope"} {
		if _, ok := GetValue(cfg, key); ok {
			t.Fatalf("expected %q to be not found", key)
		}
	}
}

func TestEveryKeyIsGettableAndParseable(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range Keys() {
		if _, ok := GetValue(cfg, key); !ok {
			t.Errorf("GetValue(%q) missing", key)
		}
		if _, ok := keyKinds[key]; !ok {
			t.Errorf("no value kind for %q", key)
		}
	}
	if len(keyKinds) != len(Keys()) {
		t.Fatalf("keyKinds has %d entries, Keys has %d", len(keyKinds), len(Keys()))
	}
}

func TestChatTimeout(t *testing.T) {
	if got := DefaultConfig().Chat.Timeout().Seconds(); got != 30 {
		t.Fatalf("Timeout=%vs want 30", got)
	}
}

func TestWriteValue(t *testing.T) {
	if err := WriteValue("", "assistant.history_size", 2); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if err := WriteValue(filepath.Join(t.TempDir(), "c.toml"), "flat", 2); err == nil {
		t.Fatalf("expected error for key without a section")
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteValue(path, "assistant.shutdown_countdown", 3); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	if err := WriteValue(path, "notes.backend", "sqlite"); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "[assistant]") || !strings.Contains(s, "shutdown_countdown = 3") {
		t.Fatalf("unexpected toml: %q", s)
	}
	if !strings.Contains(s, "[notes]") || !strings.Contains(s, `backend = "sqlite"`) {
		t.Fatalf("second write lost: %q", s)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("assistant = \"oops\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteValue(bad, "assistant.history_size", 2); err == nil {
		t.Fatalf("expected error when assistant is not a table")
	}
}

func TestWriteValue_DecodeExistingInvalidTOMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("assistant = [\n"), 0644); err != nil {
		t.Fatalf("write invalid toml: %v", err)
	}
	if err := WriteValue(path, "assistant.history_size", 2); err == nil {
		t.Fatalf("expected decode error")
	} else if !strings.Contains(err.Error(), "decode config") {
		t.Fatalf("unexpected error: %v", err)
	}
}
