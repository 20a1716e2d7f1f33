package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"case-migrator/internal/casestore"
	"case-migrator/internal/config"
	"case-migrator/internal/handler"
	"case-migrator/internal/logging"
	"case-migrator/internal/migrations"
	"case-migrator/internal/model"
	"case-migrator/internal/runner"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	runID := flag.String("run", "", "run this migration once and exit instead of serving HTTP")
	caseIDs := flag.String("case-ids", "", "comma separated case ids for -run; default selects cases by the migration's query")
	dryRun := flag.Bool("dry-run", false, "with -run, report updates without applying them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("load config")
	}

	// A one-shot run prints its report on stdout, so its logs go to stderr.
	logOut := os.Stdout
	if *runID != "" {
		logOut = os.Stderr
	}
	logger, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("configure logging")
	}

	var opts []migrations.Option
	if cfg.EnableRemoveTTL {
		opts = append(opts, migrations.WithRemoveTTL())
	}
	registry := migrations.New(logger, opts...)

	store := casestore.NewMemory()
	if cfg.CasesFile != "" {
		f, err := os.Open(cfg.CasesFile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.CasesFile).Msg("open cases file")
		}
		n, err := store.Load(f)
		f.Close()
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.CasesFile).Msg("load cases")
		}
		logger.Info().Int("loaded", n).Int("stored", store.Len()).Msg("case store seeded")
	}

	run := runner.New(registry, store, store, store, logger, runner.Options{
		PageSize: cfg.PageSize,
		MaxCases: cfg.MaxCases,
	})

	if *runID != "" {
		os.Exit(runOnce(logger, run, *runID, *caseIDs, *dryRun))
	}

	h := handler.New(registry, store, run, logger)
	srv := &fasthttp.Server{
		Handler: h.Handle,
		Name:    "case-migrator",
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("port", cfg.Port).Strs("migrations", registry.IDs()).Msg("case migrator starting")
	if err := srv.ListenAndServe(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func runOnce(logger zerolog.Logger, run *runner.Runner, migrationID, rawIDs string, dryRun bool) int {
	req := model.RunRequest{MigrationID: migrationID, DryRun: dryRun}
	for _, s := range strings.Split(rawIDs, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			logger.Error().Err(err).Str("case_id", s).Msg("invalid case id")
			return 2
		}
		req.CaseIDs = append(req.CaseIDs, id)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := run.Run(ctx, req)
	if err != nil {
		logger.Error().Err(err).Str("migration_id", migrationID).Msg("migration run failed")
		return 1
	}
	if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
		logger.Error().Err(err).Msg("write report")
		return 1
	}
	if report.RunMetadata.RunOutcome != model.OutcomeSuccess {
		return 1
	}
	return 0
}

func bootLogger() *zerolog.Logger {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &l
}
