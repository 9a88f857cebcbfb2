package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAirtable(); err != nil {
		return err
	}
	if err := c.validateTables(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAirtable() error {
	if c.Airtable.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("airtable.api_key is required. Set %s, provide airtable.token_file, or edit %s (create with 'kgsa config init')", airtableAPIKeyEnvironment, defaultPath)
	}
	if c.Airtable.BaseID == "" {
		return errors.New("airtable.base_id must be set")
	}
	if !strings.HasPrefix(c.Airtable.BaseURL, "http://") && !strings.HasPrefix(c.Airtable.BaseURL, "https://") {
		return fmt.Errorf("airtable.base_url must be an http(s) URL, got %q", c.Airtable.BaseURL)
	}
	if c.Airtable.RequestTimeout < 0 {
		return errors.New("airtable.request_timeout must be positive")
	}
	if c.Airtable.PageDelayMS < 0 {
		return errors.New("airtable.page_delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateTables() error {
	if c.Tables.Students == c.Tables.Scores {
		return errors.New("tables.students and tables.scores must name different tables")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
