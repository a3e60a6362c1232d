// Command migrate manages the service's database schema.
//
// Usage:
//
//	migrate [-dir path] up
//	migrate [-dir path] down
//	migrate [-dir path] steps <n>
//	migrate [-dir path] version
//	migrate [-dir path] force <version>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/researchhub/paper-import-service/internal/config"
	"github.com/researchhub/paper-import-service/internal/database"
	"github.com/researchhub/paper-import-service/internal/observability"
)

func main() {
	dir := flag.String("dir", "", "migrations directory (defaults to the configured path)")
	flag.Parse()

	if err := run(*dir, flag.Args()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command (up, down, steps, version, force): %w", flag.ErrHelp)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dir == "" {
		dir = cfg.Database.MigrationPath
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	}).With().Str("component", "migrate").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	mg, err := database.NewMigrator(db, dir, logger)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() {
		if closeErr := mg.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("closing migrator failed")
		}
	}()

	switch cmd := args[0]; cmd {
	case "up":
		if err := mg.Up(); err != nil {
			return err
		}
	case "down":
		if err := mg.Down(); err != nil {
			return err
		}
	case "steps":
		if len(args) != 2 {
			return fmt.Errorf("steps requires a count: %w", flag.ErrHelp)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n == 0 {
			return fmt.Errorf("steps count must be a non-zero integer, got %q", args[1])
		}
		if err := mg.Steps(n); err != nil {
			return err
		}
	case "version":
		// Falls through to the version report below.
	case "force":
		if len(args) != 2 {
			return fmt.Errorf("force requires a version: %w", flag.ErrHelp)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			return fmt.Errorf("force version must be a non-negative integer, got %q", args[1])
		}
		if err := mg.Force(v); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, flag.ErrHelp)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("schema version unavailable")
		return nil
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	return nil
}
