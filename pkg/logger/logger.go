package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/linebasic/pkg/configuration"
)

// LogLevel definiert die verschiedenen Log-Level
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (lv LogLevel) String() string {
	switch lv {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	}
	return fmt.Sprintf("LEVEL(%d)", int32(lv))
}

// LogArea is a subsystem that can be switched on in [Debug] with log_<area>.
type LogArea string

const (
	AreaTinyBasic LogArea = "tinybasic"
	AreaTerminal  LogArea = "terminal"
	AreaAuth      LogArea = "auth"
	AreaJournal   LogArea = "journal"
	AreaRepl      LogArea = "repl"
	AreaConfig    LogArea = "config"
	AreaTLS       LogArea = "tls"
	AreaGeneral   LogArea = "general"
)

var allAreas = []LogArea{
	AreaTinyBasic, AreaTerminal, AreaAuth, AreaJournal, AreaRepl, AreaConfig, AreaTLS, AreaGeneral,
}

// rotatingFile is an append-only log file that is shifted to path.1 ..
// path.N once it grows past maxBytes. Not safe for concurrent use.
type rotatingFile struct {
	path     string
	maxBytes int64
	keep     int
	file     *os.File
	size     int64
}

func (rf *rotatingFile) open() error {
	if rf.file != nil {
		rf.file.Close()
		rf.file = nil
	}
	if err := os.MkdirAll(filepath.Dir(rf.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	rf.file = f
	rf.size = 0
	if st, err := f.Stat(); err == nil {
		rf.size = st.Size()
	}
	return nil
}

func (rf *rotatingFile) write(entry string) error {
	if rf.file == nil {
		return nil
	}
	n, err := rf.file.WriteString(entry)
	rf.size += int64(n)
	if err != nil {
		return err
	}
	rf.file.Sync()
	if rf.maxBytes > 0 && rf.size > rf.maxBytes {
		return rf.rotate()
	}
	return nil
}

// rotate drops path.keep, shifts the older files by one and starts an
// empty path.
func (rf *rotatingFile) rotate() error {
	if rf.file != nil {
		rf.file.Close()
		rf.file = nil
	}
	if rf.keep > 0 {
		os.Remove(fmt.Sprintf("%s.%d", rf.path, rf.keep))
		for i := rf.keep - 1; i >= 1; i-- {
			os.Rename(fmt.Sprintf("%s.%d", rf.path, i), fmt.Sprintf("%s.%d", rf.path, i+1))
		}
		os.Rename(rf.path, rf.path+".1")
	} else {
		os.Remove(rf.path)
	}
	return rf.open()
}

func (rf *rotatingFile) close() {
	if rf.file != nil {
		rf.file.Close()
		rf.file = nil
	}
}

// Logger ist das Hauptlogging-System
type Logger struct {
	enabled atomic.Bool
	level   atomic.Int32
	areas   map[LogArea]*atomic.Bool // fixed after construction, only the flags change

	mu  sync.Mutex
	out rotatingFile
}

var (
	globalLogger *Logger
	initOnce     sync.Once
)

// Initialize initialisiert das globale Logging-System
func Initialize() error {
	var err error
	initOnce.Do(func() {
		var l *Logger
		if l, err = newLogger(); err == nil {
			globalLogger = l
		}
	})
	return err
}

func newLogger() (*Logger, error) {
	l := newBareLogger()
	l.loadConfig()
	l.out = rotatingFile{
		path:     configuration.GetString("Debug", "log_file", "debug.log"),
		maxBytes: int64(configuration.GetInt("Debug", "max_log_size_mb", 10)) * 1024 * 1024,
		keep:     configuration.GetInt("Debug", "log_rotation_count", 3),
	}
	if err := l.out.open(); err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return l, nil
}

func newBareLogger() *Logger {
	l := &Logger{areas: make(map[LogArea]*atomic.Bool, len(allAreas))}
	for _, area := range allAreas {
		l.areas[area] = new(atomic.Bool)
	}
	l.level.Store(int32(INFO))
	return l
}

// loadConfig übernimmt Level und Bereichsschalter aus [Debug]. Die Datei
// selbst wird nur beim Start geöffnet.
func (l *Logger) loadConfig() {
	l.enabled.Store(configuration.GetBool("Debug", "enable_debug_logging", true))
	l.level.Store(int32(parseLogLevel(configuration.GetString("Debug", "log_level", "INFO"))))
	for area, flag := range l.areas {
		flag.Store(configuration.GetBool("Debug", "log_"+string(area), false))
	}
}

func (l *Logger) shouldLog(level LogLevel, area LogArea) bool {
	if l == nil || !l.enabled.Load() || LogLevel(l.level.Load()) > level {
		return false
	}
	flag, ok := l.areas[area]
	return ok && flag.Load()
}

func formatEntry(now time.Time, level LogLevel, area LogArea, caller, message string) string {
	return fmt.Sprintf("[%s] %s [%s] [%s] %s\n",
		now.Format("2006-01-02 15:04:05.000"),
		level,
		caller,
		strings.ToUpper(string(area)),
		message)
}

// write formats and stores one entry. skip counts the frames between the
// public log function and write.
func (l *Logger) write(skip int, level LogLevel, area LogArea, message string) {
	caller := "???"
	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	entry := formatEntry(time.Now(), level, area, caller, message)

	l.mu.Lock()
	err := l.out.write(entry)
	l.mu.Unlock()
	if err != nil {
		log.Printf("[WARN] [GENERAL] writing log file failed: %v", err)
	}

	if level >= WARN {
		log.Printf("[%s] [%s] %s", level, strings.ToUpper(string(area)), message)
	}
}

func logf(level LogLevel, area LogArea, format string, args ...interface{}) {
	l := globalLogger
	if !l.shouldLog(level, area) {
		return
	}
	l.write(2, level, area, fmt.Sprintf(format, args...))
}

func Debug(area LogArea, format string, args ...interface{}) { logf(DEBUG, area, format, args...) }
func Info(area LogArea, format string, args ...interface{})  { logf(INFO, area, format, args...) }
func Warn(area LogArea, format string, args ...interface{})  { logf(WARN, area, format, args...) }
func Error(area LogArea, format string, args ...interface{}) { logf(ERROR, area, format, args...) }

// Fatal schreibt den Eintrag unabhängig von den Schaltern und beendet das Programm
func Fatal(area LogArea, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if l := globalLogger; l != nil {
		l.write(1, FATAL, area, message)
	}
	log.Fatalf("[FATAL] [%s] %s", strings.ToUpper(string(area)), message)
}

// areaWriter leitet Zeilen eines *log.Logger in einen Bereich um.
type areaWriter struct {
	area  LogArea
	level LogLevel
}

func (w areaWriter) Write(p []byte) (int, error) {
	if l := globalLogger; l.shouldLog(w.level, w.area) {
		l.write(3, w.level, w.area, strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

// StdLogger returns a *log.Logger that writes into area at level, for
// net/http and other packages that want one.
func StdLogger(area LogArea, level LogLevel) *log.Logger {
	return log.New(areaWriter{area: area, level: level}, "", 0)
}

// Auth Logging
func AuthDebug(format string, args ...interface{}) { logf(DEBUG, AreaAuth, format, args...) }
func AuthInfo(format string, args ...interface{})  { logf(INFO, AreaAuth, format, args...) }
func AuthWarn(format string, args ...interface{})  { logf(WARN, AreaAuth, format, args...) }
func AuthError(format string, args ...interface{}) { logf(ERROR, AreaAuth, format, args...) }

// Terminal Logging
func TerminalDebug(format string, args ...interface{}) { logf(DEBUG, AreaTerminal, format, args...) }
func TerminalInfo(format string, args ...interface{})  { logf(INFO, AreaTerminal, format, args...) }
func TerminalWarn(format string, args ...interface{})  { logf(WARN, AreaTerminal, format, args...) }
func TerminalError(format string, args ...interface{}) { logf(ERROR, AreaTerminal, format, args...) }

func ConfigInfo(format string, args ...interface{}) { logf(INFO, AreaConfig, format, args...) }

// ReloadConfig lädt Level und Bereichsschalter neu
func ReloadConfig() error {
	l := globalLogger
	if l == nil {
		return fmt.Errorf("logger not initialized")
	}
	l.loadConfig()
	return nil
}

// SetAreaEnabled schaltet einen Bereich zur Laufzeit um. Unbekannte
// Bereiche werden ignoriert.
func SetAreaEnabled(area LogArea, on bool) {
	if l := globalLogger; l != nil {
		if flag, ok := l.areas[area]; ok {
			flag.Store(on)
		}
	}
}

func AreaEnabled(area LogArea) bool {
	if l := globalLogger; l != nil {
		if flag, ok := l.areas[area]; ok {
			return flag.Load()
		}
	}
	return false
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	}
	return INFO
}

// Close schließt das Logging-System
func Close() {
	if l := globalLogger; l != nil {
		l.mu.Lock()
		l.out.close()
		l.mu.Unlock()
	}
}
