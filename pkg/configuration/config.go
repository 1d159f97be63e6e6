package configuration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// setting is one documented default of the settings file.
type setting struct {
	key, value, comment string
}

type section struct {
	name     string
	settings []setting
}

// defaults is written as-is when no settings file exists yet.
var defaults = []section{
	{"Interpreter", []setting{
		{"max_gosub_depth", "100", "nested GOSUB calls before GOSUB_DEPTH_EXCEEDED"},
		{"prompt", ">", "console prompt, a space is appended"},
		{"input_prompt", "?", "shown when INPUT waits for a value"},
	}},
	{"Server", []setting{
		{"enabled", "false", "serve sessions over WebSocket instead of the console"},
		{"http_port", "8080", ""},
		{"access_password_hash", "", "bcrypt hash; empty means no password"},
		{"allowed_origins", "", "comma separated; empty allows the request host only"},
		{"max_clients", "100", ""},
		{"connections_per_minute", "30", "per client IP"},
		{"max_line_length", "256", ""},
	}},
	{"JWT", []setting{
		{"secret_key", "", "JWT_SECRET_KEY overrides this"},
		{"token_expiration_hours", "24", ""},
	}},
	{"Network", []setting{
		{"pong_timeout", "90s", ""},
		{"write_wait_timeout", "10s", ""},
		{"max_message_size_kb", "64", ""},
		{"input_buffer", "64", "queued input lines per session"},
	}},
	{"TLS", []setting{
		{"enable_tls", "false", ""},
		{"enable_letsencrypt", "false", ""},
		{"domain", "", ""},
		{"letsencrypt_email", "", ""},
		{"cert_cache_dir", "./certs", ""},
		{"force_https_redirect", "false", ""},
		{"cert_file", "./certs/server.crt", ""},
		{"key_file", "./certs/server.key", ""},
		{"https_port", "8443", ""},
	}},
	{"Journal", []setting{
		{"enabled", "true", "record every submitted line"},
		{"database", "journal.db", ""},
	}},
	{"Debug", []setting{
		{"enable_debug_logging", "true", ""},
		{"log_level", "INFO", "DEBUG, INFO, WARN, ERROR"},
		{"log_file", "debug.log", ""},
		{"max_log_size_mb", "10", ""},
		{"log_rotation_count", "3", ""},
		{"log_tinybasic", "false", ""},
		{"log_terminal", "false", ""},
		{"log_auth", "true", ""},
		{"log_journal", "false", ""},
		{"log_repl", "false", ""},
		{"log_config", "true", ""},
		{"log_tls", "true", ""},
		{"log_general", "true", ""},
	}},
}

// Config verwaltet die Anwendungskonfiguration
type Config struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

var (
	globalConfig *Config
	once         sync.Once
)

// LocalConfigPath is read after the main file; its values override.
const LocalConfigPath = "settings.local.cfg"

// Initialize lädt configPath (und settings.local.cfg, falls vorhanden).
// Fehlt configPath, wird die Datei mit den Standardwerten angelegt.
func Initialize(configPath string) error {
	var err error
	once.Do(func() {
		var c *Config
		if c, err = loadConfig(configPath); err != nil {
			return
		}
		if _, statErr := os.Stat(LocalConfigPath); statErr == nil {
			if err = c.mergeFile(LocalConfigPath); err != nil {
				return
			}
		}
		globalConfig = c
	})
	return err
}

func newDefaultConfig() *Config {
	c := &Config{values: make(map[string]map[string]string, len(defaults))}
	for _, s := range defaults {
		m := make(map[string]string, len(s.settings))
		for _, kv := range s.settings {
			m[kv.key] = kv.value
		}
		c.values[s.name] = m
	}
	return c
}

func loadConfig(path string) (*Config, error) {
	c := newDefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaults(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return c, nil
	}
	if err := c.mergeFile(path); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.merge(f)
}

// merge liest INI-Zeilen: [Sektion], key = value, Kommentare mit ; oder #.
// Zeilen ohne = und Schlüssel außerhalb einer Sektion werden übergangen.
func (c *Config) merge(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scanner := bufio.NewScanner(r)
	var current map[string]string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", line[0] == ';', line[0] == '#':
		case line[0] == '[' && line[len(line)-1] == ']':
			name := strings.TrimSpace(line[1 : len(line)-1])
			if c.values[name] == nil {
				c.values[name] = make(map[string]string)
			}
			current = c.values[name]
		default:
			key, value, ok := strings.Cut(line, "=")
			if ok && current != nil {
				current[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}
	return scanner.Err()
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "; linebasic configuration file")
	fmt.Fprintln(w, "; Generated automatically - modify with care")
	for _, s := range defaults {
		fmt.Fprintf(w, "\n[%s]\n", s.name)
		for _, kv := range s.settings {
			if kv.comment != "" {
				fmt.Fprintf(w, "; %s\n", kv.comment)
			}
			fmt.Fprintf(w, "%s = %s\n", kv.key, kv.value)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// lookup returns the raw value and whether the key is set at all.
func (c *Config) lookup(sectionName, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[sectionName][key]
	return v, ok
}

// GetString returns the value of key in section, or defaultValue.
func (c *Config) GetString(sectionName, key, defaultValue string) string {
	if v, ok := c.lookup(sectionName, key); ok {
		return v
	}
	return defaultValue
}

// GetString gibt einen String-Wert aus der globalen Konfiguration zurück.
// Vor Initialize liefert es immer defaultValue.
func GetString(sectionName, key, defaultValue string) string {
	if globalConfig == nil {
		return defaultValue
	}
	return globalConfig.GetString(sectionName, key, defaultValue)
}

// getParsed converts a non-empty value with parse, falling back to def on
// a missing, empty or unparsable value.
func getParsed[T any](sectionName, key string, def T, parse func(string) (T, error)) T {
	s := GetString(sectionName, key, "")
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		return def
	}
	return v
}

func GetInt(sectionName, key string, defaultValue int) int {
	return getParsed(sectionName, key, defaultValue, strconv.Atoi)
}

func GetBool(sectionName, key string, defaultValue bool) bool {
	return getParsed(sectionName, key, defaultValue, strconv.ParseBool)
}

// GetDuration akzeptiert Go-Dauern wie "90s" oder "1500ms".
func GetDuration(sectionName, key string, defaultValue time.Duration) time.Duration {
	return getParsed(sectionName, key, defaultValue, time.ParseDuration)
}
