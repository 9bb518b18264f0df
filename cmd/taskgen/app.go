package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"innerbloom-server/internal/config"
	"innerbloom-server/internal/database"
	"innerbloom-server/internal/diagnostics"
	"innerbloom-server/internal/messaging"
	"innerbloom-server/internal/prompt"
	"innerbloom-server/internal/repository"
	"innerbloom-server/internal/runner"
	"innerbloom-server/internal/service"
	"innerbloom-server/internal/snapshot"
	"innerbloom-server/internal/validation"
	"innerbloom-server/shared/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var globalFlags struct {
	appRoot      string
	snapshotPath string
	promptsDir   string
	model        string
	timeout      time.Duration
	logLevel     string
}

// app holds what every command builds at start: configuration, logger and
// diagnostics sink, plus the connections a command opened.
type app struct {
	cfg  config.Config
	log  *zap.Logger
	diag *diagnostics.Sink

	pool    *pgxpool.Pool
	amqp    *amqp.Connection
	channel *amqp.Channel
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		return nil, err
	}
	cfg.LogSummary(log)

	return &app{
		cfg:  cfg,
		log:  log,
		diag: diagnostics.NewSink(log, diagnostics.DefaultDirs(cfg.AppRoot, cfg.DiagnosticsDir)),
	}, nil
}

func applyFlags(cfg *config.Config) {
	if globalFlags.appRoot != "" {
		cfg.AppRoot = globalFlags.appRoot
	}
	if globalFlags.snapshotPath != "" {
		cfg.SnapshotPath = globalFlags.snapshotPath
	}
	if globalFlags.promptsDir != "" {
		cfg.PromptsDir = globalFlags.promptsDir
	}
	if globalFlags.model != "" {
		cfg.AIModel = globalFlags.model
	}
	if globalFlags.timeout > 0 {
		cfg.AITimeout = globalFlags.timeout
	}
	if globalFlags.logLevel != "" {
		cfg.LogLevel = globalFlags.logLevel
	}
}

// stages builds the production pipeline. Writer and Notifier are added by
// the commands that need them.
func (a *app) stages() (runner.Stages, error) {
	invoker, err := service.NewAIClient(a.cfg, a.log)
	if err != nil {
		return runner.Stages{}, err
	}
	return runner.Stages{
		Resolver: snapshot.NewResolver(snapshot.Options{
			AppRoot:      a.cfg.AppRoot,
			SnapshotPath: a.cfg.SnapshotPath,
			FixturePath:  a.cfg.FixturePath,
		}, a.log),
		Templates: prompt.NewLoader(a.cfg.AppRoot, a.cfg.PromptsDir, a.log),
		Invoker:   invoker,
		Validator: validation.New(a.log),
	}, nil
}

func (a *app) options() runner.Options {
	opts := runner.Options{
		DefaultMode: a.cfg.Mode(),
		TaskCount:   a.cfg.DryRunTaskCount,
		Diagnostics: a.diag,
		Logger:      a.log,
	}
	counter, err := prompt.NewTiktokenCounter(a.cfg.AIModel)
	if err != nil {
		a.log.Warn("Token estimates disabled", zap.Error(err))
		return opts
	}
	opts.TokenCounter = counter
	return opts
}

// connectStorage opens the pool and returns a task writer over it.
func (a *app) connectStorage(ctx context.Context) (runner.TaskWriter, error) {
	pool, err := database.NewPool(ctx, a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	return repository.NewTaskRepository(pool, a.log), nil
}

// connectRabbitMQ opens one connection and one channel.
func (a *app) connectRabbitMQ() error {
	if a.cfg.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is not set")
	}
	conn, err := amqp.Dial(a.cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	a.amqp, a.channel = conn, ch
	a.log.Info("Connected to RabbitMQ")
	return nil
}

// notifier returns a Notifier when RabbitMQ is configured, nil otherwise.
func (a *app) notifier() (messaging.Notifier, error) {
	if a.cfg.RabbitMQURL == "" {
		return nil, nil
	}
	if a.channel == nil {
		if err := a.connectRabbitMQ(); err != nil {
			return nil, err
		}
	}
	return messaging.NewRabbitMQNotifier(a.channel, a.cfg.TasksExchange, a.log)
}

func (a *app) Close() {
	if a.channel != nil {
		_ = a.channel.Close()
	}
	if a.amqp != nil {
		_ = a.amqp.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.log.Sync()
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
