package pkg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is a map of fields to add to log entries
type Fields map[string]any

var (
	instance *Logger
	once     sync.Once
	mu       sync.RWMutex

	// sync.Once for zerolog global state (to prevent data races)
	timeFormatOnce sync.Once
)

// Logger wraps zerolog with field and configuration handling
type Logger struct {
	*zerolog.Logger
	config *LogConfig
}

// LogConfig holds logger configuration
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic)
	Level string `json:"level" yaml:"level"`

	// Format is the output format (json, console)
	Format string `json:"format" yaml:"format"`

	// TimestampFormat for logs
	TimestampFormat string `json:"timestamp_format" yaml:"timestamp_format"`

	// Console output settings
	Console ConsoleConfig `json:"console" yaml:"console"`

	// File output settings
	File FileConfig `json:"file" yaml:"file"`

	// Fields are default fields added to all logs
	Fields Fields `json:"fields" yaml:"fields"`
}

// ConsoleConfig for console output
type ConsoleConfig struct {
	// Enable console output
	Enable bool `json:"enable" yaml:"enable"`

	// NoColor disables color output
	NoColor bool `json:"no_color" yaml:"no_color"`

	// TimeFormat for console output
	TimeFormat string `json:"time_format" yaml:"time_format"`

	// Output target (stdout, stderr)
	Output string `json:"output" yaml:"output"`
}

// FileConfig for file output
type FileConfig struct {
	// Enable file output
	Enable bool `json:"enable" yaml:"enable"`

	// Path to log file
	Path string `json:"path" yaml:"path"`

	// MaxSize in megabytes
	MaxSize int `json:"max_size" yaml:"max_size"`

	// MaxAge in days
	MaxAge int `json:"max_age" yaml:"max_age"`

	// MaxBackups to keep
	MaxBackups int `json:"max_backups" yaml:"max_backups"`

	// Compress rotated files
	Compress bool `json:"compress" yaml:"compress"`
}

// DefaultLogConfig returns default logger configuration
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:           "info",
		Format:          "json",
		TimestampFormat: time.RFC3339Nano,
		Console: ConsoleConfig{
			Enable:     true,
			NoColor:    false,
			TimeFormat: "15:04:05.000",
			Output:     "stdout",
		},
		File: FileConfig{
			Enable:     false,
			Path:       "halo.log",
			MaxSize:    100, // 100MB
			MaxAge:     30,  // 30 days
			MaxBackups: 10,
			Compress:   true,
		},
		Fields: make(Fields),
	}
}

// InitLogger initializes the global logger with configuration
func InitLogger(config *LogConfig) error {
	logger, err := NewLogger(config)
	if err != nil {
		return err
	}

	SetGlobal(logger)
	return nil
}

// NewLogger creates a new logger instance
func NewLogger(config *LogConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLogConfig()
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	writers := []io.Writer{}

	if config.Console.Enable {
		var output io.Writer
		switch config.Console.Output {
		case "stderr":
			output = os.Stderr
		default:
			output = os.Stdout
		}

		if config.Format == "console" {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: config.Console.TimeFormat,
				NoColor:    config.Console.NoColor,
			})
		} else {
			writers = append(writers, output)
		}
	}

	if config.File.Enable {
		if err := os.MkdirAll(filepath.Dir(config.File.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		writers = append(writers, &lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSize,
			MaxAge:     config.File.MaxAge,
			MaxBackups: config.File.MaxBackups,
			Compress:   config.File.Compress,
		})
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	if config.TimestampFormat != "" {
		timeFormatOnce.Do(func() {
			zerolog.TimeFieldFormat = config.TimestampFormat
		})
	}

	contextBuilder := zerolog.New(writer).
		Level(level).
		With().
		Timestamp()

	for k, v := range config.Fields {
		contextBuilder = contextBuilder.Interface(k, v)
	}

	zl := contextBuilder.Logger()

	return &Logger{
		Logger: &zl,
		config: config,
	}, nil
}

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	instance = l
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	once.Do(func() {
		if instance == nil {
			l, _ := NewLogger(DefaultLogConfig())
			instance = l
		}
	})
	return instance
}

// UpdateLevel updates the log level dynamically
func (l *Logger) UpdateLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	newLogger := l.Logger.Level(lvl)
	l.Logger = &newLogger
	l.config.Level = level
	return nil
}

// WithFields creates a child logger with additional fields
func (l *Logger) WithFields(fields Fields) *Logger {
	ctx := l.Logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}

	zl := ctx.Logger()
	return &Logger{
		Logger: &zl,
		config: l.config,
	}
}

// WithError creates a child logger with error details added
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	return l.WithFields(Fields{
		"error":      err.Error(),
		"error_type": fmt.Sprintf("%T", err),
	})
}
