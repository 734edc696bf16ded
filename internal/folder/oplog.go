package folder

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is an operation log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the level name as written to the log file.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// OpLog is a per-folder operation logger. Every event is appended to
// the folder's log file as "timestamp \t LEVEL \t message"; events at
// INFO and above are also echoed to the caller-supplied writer. There
// is no process-wide logger state.
type OpLog struct {
	file io.Writer
	echo io.Writer
	key  string

	// now is swappable for tests.
	now func() time.Time
}

// NewOpLog creates an operation logger appending to the file at path.
// The file is size-rotated so a long-lived folder never grows an
// unbounded log.
func NewOpLog(path, key string, echo io.Writer) *OpLog {
	if echo == nil {
		echo = io.Discard
	}
	return &OpLog{
		file: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 1,
		},
		echo: echo,
		key:  key,
		now:  time.Now,
	}
}

// Log appends one event. Embedded newlines are escaped so the log file
// stays one event per line.
func (l *OpLog) Log(level Level, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	flat := strings.ReplaceAll(message, "\n", "\\n")

	fmt.Fprintf(l.file, "%s\t%s\t%s\n", l.now().UTC().Format(time.RFC3339), level, flat)

	if level >= LevelInfo {
		fmt.Fprintf(l.echo, "[%s %s] %s\n", level, l.key, message)
	}
}

// Debugf logs at DEBUG (file only).
func (l *OpLog) Debugf(format string, args ...any) {
	l.Log(LevelDebug, format, args...)
}

// Infof logs at INFO.
func (l *OpLog) Infof(format string, args ...any) {
	l.Log(LevelInfo, format, args...)
}

// Warnf logs at WARNING.
func (l *OpLog) Warnf(format string, args ...any) {
	l.Log(LevelWarning, format, args...)
}

// Errorf logs at ERROR.
func (l *OpLog) Errorf(format string, args ...any) {
	l.Log(LevelError, format, args...)
}
