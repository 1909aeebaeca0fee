package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/neilberkman/appforge/internal/core/config"
	"github.com/neilberkman/appforge/internal/core/daemon"
	"github.com/neilberkman/appforge/internal/core/db"
	"github.com/neilberkman/appforge/internal/core/llm"
	"github.com/neilberkman/appforge/internal/core/logging"
	"github.com/neilberkman/appforge/internal/core/workflow"
)

// app bundles what every command needs: config, logger and the history db
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	logClose io.Closer
	db       *db.DB
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openApp loads config, opens the log file and the history database
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &app{cfg: cfg, logger: logger, logClose: closer, db: database}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
	_ = a.logClose.Close()
}

// templates returns the prompt templates with any overrides from the prompts dir
func (a *app) templates() (llm.Templates, error) {
	t, err := llm.LoadTemplates(a.cfg.PromptsDir)
	if err != nil {
		return llm.Templates{}, fmt.Errorf("failed to load prompt templates: %w", err)
	}
	return t, nil
}

func (a *app) settings() llm.Settings {
	return llm.Settings{
		Provider:       a.cfg.Provider,
		Model:          a.cfg.Model,
		APIKey:         a.cfg.APIKey,
		BaseURL:        a.cfg.BaseURL,
		BedrockRegion:  a.cfg.BedrockRegion,
		BedrockProfile: a.cfg.BedrockProfile,
	}
}

// controller builds a workflow controller that saves every transition to history
func (a *app) controller(ctx context.Context) (*workflow.Controller, error) {
	client, err := llm.NewClient(ctx, a.settings(), a.logger)
	if err != nil {
		return nil, err
	}
	t, err := a.templates()
	if err != nil {
		return nil, err
	}
	return workflow.New(client,
		workflow.WithStore(a.db),
		workflow.WithTemplates(t),
		workflow.WithLogger(a.logger),
	), nil
}

// watchTemplates reloads prompt overrides into ctrl until ctx is done.
// Without a prompts directory there is nothing to watch.
func (a *app) watchTemplates(ctx context.Context, ctrl *workflow.Controller) {
	w, err := daemon.NewTemplateWatcher(a.cfg.PromptsDir, ctrl.SetTemplates, a.logger)
	if err != nil {
		a.logger.Debug("prompt template reload disabled", "error", err)
		return
	}
	go func() {
		if err := w.Start(ctx); err != nil {
			a.logger.Error("prompt template watcher stopped", "error", err)
		}
	}()
}

// truncate collapses whitespace and cuts s at a word boundary
func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}

	truncated := s[:maxLen]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen-20 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printErr(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
