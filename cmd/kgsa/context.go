package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"kgsa/internal/airtable"
	"kgsa/internal/config"
	"kgsa/internal/journal"
	"kgsa/internal/logging"
	"kgsa/internal/prompt"
	"kgsa/internal/reconcile"
)

// importStore is what the import commands need from the remote base.
type importStore interface {
	reconcile.Store
	Choices(ctx context.Context, table, field string) ([]string, error)
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) airtableClient(logger *slog.Logger) (*airtable.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return airtable.New(cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.BaseURL,
		airtable.WithTimeout(time.Duration(cfg.Airtable.RequestTimeout)*time.Second),
		airtable.WithPageDelay(time.Duration(cfg.Airtable.PageDelayMS)*time.Millisecond),
		airtable.WithLogger(logging.NewComponentLogger(logger, "airtable")),
	)
}

func (c *commandContext) store(logger *slog.Logger) (importStore, error) {
	client, err := c.airtableClient(logger)
	if err != nil {
		return nil, err
	}
	return airtable.NewStore(client, logger), nil
}

func (c *commandContext) withJournal(fn func(*journal.Journal) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	j, err := journal.Open(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()
	return fn(j)
}

func newPrompter(cmd *cobra.Command) prompt.Prompter {
	return prompt.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
