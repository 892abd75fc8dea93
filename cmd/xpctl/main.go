package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anoa.com/venti/internal/bootstrap"
	"anoa.com/venti/internal/config"
	progressionRepo "anoa.com/venti/internal/modules/progression/repository"
	progression "anoa.com/venti/internal/modules/progression/service"
	"anoa.com/venti/pkg/database"
	"anoa.com/venti/pkg/logger"
)

func main() {
	rootCommand := newRootCommand(openXPService)
	if err := rootCommand.Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
}

// serviceOpener builds the XP service a command runs against. The returned
// func releases whatever the service holds.
type serviceOpener func(debug bool) (progression.XPService, func(), error)

func newRootCommand(open serviceOpener) *cobra.Command {
	var debugMode bool
	rootCommand := &cobra.Command{
		Use:           "xpctl",
		Short:         "Operate the XP progression engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCommand.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCommand.AddCommand(
		newCurveCommand(),
		newGrantAllCommand(func() (progression.XPService, func(), error) {
			return open(debugMode)
		}),
	)
	return rootCommand
}

func openXPService(debug bool) (progression.XPService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config.Load() > %w", err)
	}

	mode := "production"
	if debug {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, nil, fmt.Errorf("logger.New() > %w", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("bootstrap.Migrate() > %w", err)
	}

	svc := progression.NewXPService(
		progressionRepo.NewProgressionRepository(db),
		nil,
		nil,
		log,
		progression.Config{Location: cfg.TimeZone, RetryAttempts: cfg.XPRetryAttempts},
	)
	closer := func() {
		log.Sync()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return svc, closer, nil
}
