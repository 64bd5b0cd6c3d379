// Package logging configures the global slog logger for the keepclip binary.
//
// Terminals get colourised human output from tinter; everything else (launchd,
// systemd, redirected stderr) gets one JSON object per line.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level. Empty or unknown input yields
// def.
func ParseLevel(s string, def slog.Level) slog.Level {
	var l slog.Level
	if s == "" || l.UnmarshalText([]byte(s)) != nil {
		return def
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Config describes a logger.
type Config struct {
	Format Format
	Level  slog.Level
	Output io.Writer // nil means os.Stderr
}

// Resolve builds a Config from flag values. An empty level means debug when
// running interactively and info otherwise.
func Resolve(format, level string, interactive bool) Config {
	def := slog.LevelInfo
	if interactive {
		def = slog.LevelDebug
	}
	return Config{Format: ParseFormat(format), Level: ParseLevel(level, def)}
}

// New returns a logger for cfg.
func New(cfg Config) *slog.Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	if cfg.Format == FormatText || (cfg.Format == FormatAuto && IsTTY(w)) {
		return slog.New(tinter.NewHandler(w, &tinter.Options{
			Level:      cfg.Level,
			TimeFormat: "15:04:05.000",
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level}))
}

// Setup installs the logger for cfg as the slog default.
func Setup(cfg Config) {
	slog.SetDefault(New(cfg))
}
