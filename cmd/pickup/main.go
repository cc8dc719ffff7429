package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/aditywn/csv-pickup/internal/cache"
	"github.com/aditywn/csv-pickup/internal/config"
	"github.com/aditywn/csv-pickup/internal/discovery"
	"github.com/aditywn/csv-pickup/internal/notify"
	"github.com/aditywn/csv-pickup/internal/pipeline"
	"github.com/aditywn/csv-pickup/internal/remote"
	"github.com/aditywn/csv-pickup/internal/retry"
	"github.com/aditywn/csv-pickup/internal/sink"
	"github.com/aditywn/csv-pickup/internal/validate"
	"github.com/aditywn/csv-pickup/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err == nil {
		logger.Log.Debug().Msg("loaded .env file")
	}

	app := &cli.App{
		Name:  "pickup",
		Usage: "Fetch, validate, and record CSV files from a remote store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"PICKUP_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "root",
				Usage: "Remote root directory to discover under (repeatable, overrides config)",
			},
			&cli.StringFlag{
				Name:  "keyword",
				Usage: "Substring the remote path must contain (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "delete",
				Usage: "Delete each remote file after a successful fetch",
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Emit JSON logs instead of console output",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("run failed")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.LogLevel)
	if c.Bool("json-logs") {
		logger.UseJSON(os.Stderr)
	}

	if roots := c.StringSlice("root"); len(roots) > 0 {
		cfg.SFTP.RootDirs = roots
	}
	if c.IsSet("keyword") {
		cfg.Filter.Keyword = c.String("keyword")
	}
	if c.Bool("delete") {
		cfg.Pipeline.DeleteAfterFetch = true
	}
	if len(cfg.SFTP.RootDirs) == 0 {
		return fmt.Errorf("at least one remote root directory is required")
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	// SIGINT/SIGTERM stop new batches; in-flight tasks finish.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		// Connection-level failures are fatal to the run, no retry.
		return err
	}
	defer store.Close()

	recorder, logPath, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer recorder.Close()

	summaryCache, err := cache.NewSummaryCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer summaryCache.Close()

	policy := retry.Policy{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		Backoff:     cfg.Pipeline.RetryBackoff,
	}
	engine := discovery.NewEngine(store, discovery.Filter{
		Extension: cfg.Filter.Extension,
		Keyword:   cfg.Filter.Keyword,
	}, policy, cfg.Pipeline.MaxDepth)

	opts := pipeline.Options{
		BatchSize:        cfg.Pipeline.BatchSize,
		WorkerCount:      cfg.Pipeline.WorkerCount,
		DownloadDir:      cfg.Local.DownloadDir,
		DeleteAfterFetch: cfg.Pipeline.DeleteAfterFetch,
	}
	validator := validate.NewCSVValidator(validate.Schema{}, "")

	orch := pipeline.NewOrchestrator(engine, store, validator, recorder, policy, opts)
	summary, runErr := orch.Run(ctx, cfg.SFTP.RootDirs)

	fmt.Println(summary.String())

	if err := summaryCache.SetSummary(context.Background(), summary); err != nil {
		logger.Log.Warn().Err(err).Msg("could not cache run summary")
	}

	notifier := notify.NewSMTPNotifier(cfg.Email)
	if err := notifier.Notify(context.Background(), "CSV Validation Complete",
		summary.String(), logPath); err != nil {
		logger.Log.Warn().Err(err).Msg("could not send notification")
	}

	return runErr
}

// openStore dials the configured remote adapter.
func openStore(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.Remote {
	case "s3":
		return remote.DialS3(ctx, remote.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
	default:
		return remote.DialSFTP(remote.SFTPConfig{
			Host:     cfg.SFTP.Host,
			Port:     cfg.SFTP.Port,
			User:     cfg.SFTP.User,
			Password: cfg.SFTP.Password,
		})
	}
}

// openSink opens the validation log and the configured structured store,
// returning the composite sink and the log path for the notification
// attachment.
func openSink(cfg *config.Config) (*sink.Composite, string, error) {
	logWriter, err := sink.OpenLog(cfg.Local.LogFile)
	if err != nil {
		return nil, "", err
	}

	var store sink.StructuredStore
	switch cfg.Sink.Driver {
	case "postgres":
		store, err = sink.OpenPostgres(cfg.Sink.PostgresDSN)
	default:
		store, err = sink.OpenSQLite(cfg.Sink.SQLitePath)
	}
	if err != nil {
		logWriter.Close()
		return nil, "", err
	}

	return sink.NewComposite(logWriter, store), cfg.Local.LogFile, nil
}
