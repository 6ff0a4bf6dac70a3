package webserial

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls where and how much the application logs.
type LogConfig struct {
	Level      string `json:"level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	Format     string `json:"format,omitempty" validate:"omitempty,oneof=console json"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" validate:"gte=0"`
	MaxBackups int    `json:"max_backups,omitempty" validate:"gte=0"`
	MaxAgeDays int    `json:"max_age_days,omitempty" validate:"gte=0"`
	Compress   bool   `json:"compress,omitempty"`
}

// DefaultLogConfig logs info and above to stderr.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// Merge applies non-zero values from source into c.
func (c *LogConfig) Merge(source *LogConfig) {
	if source.Level != "" {
		c.Level = source.Level
	}
	if source.Format != "" {
		c.Format = source.Format
	}
	if source.File != "" {
		c.File = source.File
	}
	if source.MaxSizeMB > 0 {
		c.MaxSizeMB = source.MaxSizeMB
	}
	if source.MaxBackups > 0 {
		c.MaxBackups = source.MaxBackups
	}
	if source.MaxAgeDays > 0 {
		c.MaxAgeDays = source.MaxAgeDays
	}
	if source.Compress {
		c.Compress = true
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the application logger. Stderr gets human-readable output
// when it is a terminal (or Format is "console") and JSON otherwise; File, if
// set, always receives JSON and is rotated. The returned Closer flushes the
// log file.
func NewLogger(cfg LogConfig) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		level = l
	}

	tty := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	var stderr io.Writer = os.Stderr
	if cfg.Format == "console" || (cfg.Format == "" && tty) {
		stderr = zerolog.ConsoleWriter{
			Out:        colorable.NewColorableStderr(),
			NoColor:    !tty,
			TimeFormat: "15:04:05.000",
		}
	}

	writers := []io.Writer{stderr}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, lj)
		closer = lj
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}
