// Package vlog provides leveled logging for the voxelizer. Messages go to the
// standard log package by default, or to a size-rotated file once a
// LogConfig with a file name has been applied.
package vlog

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/natefinch/lumberjack"
)

// ModeFlag is the minimum severity that gets written.
type ModeFlag int32

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	SilentMode
)

func (m ModeFlag) String() string {
	switch m {
	case DebugMode:
		return "debug"
	case InfoMode:
		return "info"
	case WarningMode:
		return "warning"
	case ErrorMode:
		return "error"
	case SilentMode:
		return "silent"
	default:
		return fmt.Sprintf("ModeFlag(%d)", int32(m))
	}
}

// ParseMode converts a level name such as "debug" or "warning" to a ModeFlag.
func ParseMode(s string) (ModeFlag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugMode, nil
	case "", "info":
		return InfoMode, nil
	case "warn", "warning":
		return WarningMode, nil
	case "error":
		return ErrorMode, nil
	case "silent", "off", "none":
		return SilentMode, nil
	}
	return InfoMode, fmt.Errorf("unknown log level %q", s)
}

var (
	mode int32 = int32(InfoMode)

	mu   sync.Mutex
	file *lumberjack.Logger
)

// SetLogMode sets the severity required for a message to be written.
func SetLogMode(m ModeFlag) {
	atomic.StoreInt32(&mode, int32(m))
}

// Mode returns the current severity threshold.
func Mode() ModeFlag {
	return ModeFlag(atomic.LoadInt32(&mode))
}

func enabled(m ModeFlag) bool {
	return Mode() <= m
}

// LogConfig configures an optional rotating log file.
type LogConfig struct {
	Logfile string `toml:"logfile"`
	MaxSize int    `toml:"max_log_size"` // megabytes
	MaxAge  int    `toml:"max_log_age"`  // days
}

// SetLogger routes log output to the configured file. With no file name the
// standard log output is left untouched.
func (c *LogConfig) SetLogger() {
	if c == nil || c.Logfile == "" {
		return
	}
	l := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize,
		MaxAge:   c.MaxAge,
	}
	mu.Lock()
	if file != nil {
		file.Close()
	}
	file = l
	mu.Unlock()
	log.SetOutput(l)
}

// Shutdown closes the log file, if any.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
}

func Debugf(format string, args ...interface{}) {
	if enabled(DebugMode) {
		log.Printf(" DEBUG "+format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(InfoMode) {
		log.Printf(" INFO "+format, args...)
	}
}

func Warningf(format string, args ...interface{}) {
	if enabled(WarningMode) {
		log.Printf(" WARNING "+format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled(ErrorMode) {
		log.Printf(" ERROR "+format, args...)
	}
}

// TimeLog appends the time elapsed since its creation to each message.
//
//	tlog := vlog.NewTimeLog()
//	...
//	tlog.Debugf("rasterized %d triangles", n) // "... : 1.2s"
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{start: time.Now()}
}

// Elapsed returns the time since the TimeLog was created.
func (t TimeLog) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	Debugf(format+": %s", append(args, t.Elapsed())...)
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	Infof(format+": %s", append(args, t.Elapsed())...)
}
