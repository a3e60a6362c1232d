package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LoggingConfig controls how the service logger is built.
type LoggingConfig struct {
	// Level is the minimum level emitted (trace through panic).
	Level string
	// Format selects json or console output.
	Format string
	// Output selects stdout or stderr.
	Output string
	// AddSource annotates entries with the caller's file and line.
	AddSource bool
	// TimeFormat overrides the RFC3339 timestamp format.
	TimeFormat string
}

// NewLogger builds the zerolog root logger for the process.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	format := strings.ToLower(cfg.Format)
	if format == "console" || format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	builder := zerolog.New(out).With().Timestamp()
	if cfg.AddSource {
		builder = builder.Caller()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return builder.Logger().Level(level)
}

func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// WithJobContext stamps entries with the import job id.
func WithJobContext(logger zerolog.Logger, jobID uuid.UUID) zerolog.Logger {
	return logger.With().Stringer("job_id", jobID).Logger()
}

// WithPaperContext stamps entries with the paper id and title.
func WithPaperContext(logger zerolog.Logger, paperID uuid.UUID, title string) zerolog.Logger {
	return logger.With().Stringer("paper_id", paperID).Str("title", title).Logger()
}

// WithResearcherContext stamps entries with the researcher id and name.
func WithResearcherContext(logger zerolog.Logger, researcherID uuid.UUID, name string) zerolog.Logger {
	return logger.With().Stringer("researcher_id", researcherID).Str("researcher_name", name).Logger()
}
