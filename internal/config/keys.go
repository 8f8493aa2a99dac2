package config

import (
	"fmt"
	"strconv"
	"strings"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindStringSlice
)

var keyKinds = map[string]valueKind{
	"assistant.wake_word":          kindString,
	"assistant.shutdown_countdown": kindInt,
	"assistant.history_size":       kindInt,
	"assistant.speak_enabled":      kindBool,
	"assistant.tts_command":        kindString,

	"notes.backend":       kindString,
	"notes.file_path":     kindString,
	"notes.database_path": kindString,

	"chat.model":           kindString,
	"chat.api_key_env":     kindStringSlice,
	"chat.timeout_seconds": kindInt,

	"daemon.ipc_socket":       kindString,
	"daemon.tcp_addr":         kindString,
	"daemon.tcp_require_auth": kindBool,
	"daemon.tcp_auth_token":   kindString,
	"daemon.tcp_allowed_ips":  kindStringSlice,
	"daemon.http_addr":        kindString,
	"daemon.log_level":        kindString,
	"daemon.pid_file":         kindString,

	"notifications.desktop_enabled": kindBool,
}

// orderedKeys lists every settable key in file order.
var orderedKeys = []string{
	"assistant.wake_word",
	"assistant.shutdown_countdown",
	"assistant.history_size",
	"assistant.speak_enabled",
	"assistant.tts_command",
	"notes.backend",
	"notes.file_path",
	"notes.database_path",
	"chat.model",
	"chat.api_key_env",
	"chat.timeout_seconds",
	"daemon.ipc_socket",
	"daemon.tcp_addr",
	"daemon.tcp_require_auth",
	"daemon.tcp_auth_token",
	"daemon.tcp_allowed_ips",
	"daemon.http_addr",
	"daemon.log_level",
	"daemon.pid_file",
	"notifications.desktop_enabled",
}

// Keys returns every settable key.
func Keys() []string {
	out := make([]string, len(orderedKeys))
	copy(out, orderedKeys)
	return out
}

// ParseValue converts the string form of a value to the type key expects.
func ParseValue(key, raw string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unsupported config key %q", key)
	}
	return parseValueByKind(raw, kind)
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindString:
		return raw, nil
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", raw, err)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q: %w", raw, err)
		}
		return b, nil
	case kindStringSlice:
		out := []string{}
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %d", kind)
	}
}

// GetValue returns the value at key. A bare section name returns the whole
// section struct.
func GetValue(cfg Config, key string) (any, bool) {
	switch key {
	case "assistant":
		return cfg.Assistant, true
	case "notes":
		return cfg.Notes, true
	case "chat":
		return cfg.Chat, true
	case "daemon":
		return cfg.Daemon, true
	case "notifications":
		return cfg.Notifications, true

	case "assistant.wake_word":
		return cfg.Assistant.WakeWord, true
	case "assistant.shutdown_countdown":
		return cfg.Assistant.ShutdownCountdown, true
	case "assistant.history_size":
		return cfg.Assistant.HistorySize, true
	case "assistant.speak_enabled":
		return cfg.Assistant.SpeakEnabled, true
	case "assistant.tts_command":
		return cfg.Assistant.TTSCommand, true

	case "notes.backend":
		return cfg.Notes.Backend, true
	case "notes.file_path":
		return cfg.Notes.FilePath, true
	case "notes.database_path":
		return cfg.Notes.DatabasePath, true

	case "chat.model":
		return cfg.Chat.Model, true
	case "chat.api_key_env":
		return cfg.Chat.APIKeyEnv, true
	case "chat.timeout_seconds":
		return cfg.Chat.TimeoutSeconds, true

	case "daemon.ipc_socket":
		return cfg.Daemon.IPCSocket, true
	case "daemon.tcp_addr":
		return cfg.Daemon.TCPAddr, true
	case "daemon.tcp_require_auth":
		return cfg.Daemon.TCPRequireAuth, true
	case "daemon.tcp_auth_token":
		return cfg.Daemon.TCPAuthToken, true
	case "daemon.tcp_allowed_ips":
		return cfg.Daemon.TCPAllowedIPs, true
	case "daemon.http_addr":
		return cfg.Daemon.HTTPAddr, true
	case "daemon.log_level":
		return cfg.Daemon.LogLevel, true
	case "daemon.pid_file":
		return cfg.Daemon.PIDFile, true

	case "notifications.desktop_enabled":
		return cfg.Notifications.DesktopEnabled, true
	}
	return nil, false
}
