package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

type Options struct {
	Level  string
	Format string
	Prefix string
}

// New builds a slog.Logger on top of a charmbracelet handler and installs it
// as the process default.
func New(opts Options) *slog.Logger {
	return newLogger(os.Stdout, opts)
}

func newLogger(w io.Writer, opts Options) *slog.Logger {
	styles := log.DefaultStyles()
	styles.Levels[log.ErrorLevel] = levelStyle("ERROR", "#FF6B6B")
	styles.Levels[log.WarnLevel] = levelStyle("WARN", "#EE6FF8")
	styles.Levels[log.InfoLevel] = levelStyle("INFO", "#04B575")
	styles.Levels[log.DebugLevel] = levelStyle("DEBUG", "#7E57C2")
	styles.Keys["err"] = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	styles.Values["err"] = lipgloss.NewStyle().Bold(true)

	formatter := log.TextFormatter
	if strings.EqualFold(opts.Format, "json") {
		formatter = log.JSONFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           parseLevel(opts.Level),
		Prefix:          opts.Prefix,
		Formatter:       formatter,
	})
	handler.SetStyles(styles)

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func levelStyle(label, color string) lipgloss.Style {
	return lipgloss.NewStyle().
		SetString(label).
		Bold(true).
		MaxWidth(5).
		Foreground(lipgloss.Color(color))
}

func parseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
