package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	if err := loadDotEnv(); err != nil {
		return err
	}
	if err := c.normalizeAirtable(); err != nil {
		return err
	}
	c.normalizeTables()
	if err := c.normalizeImport(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

// loadDotEnv reads ./.env when present. Variables already set in the
// environment win over the file.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c *Config) normalizeAirtable() error {
	c.Airtable.APIKey = strings.TrimSpace(c.Airtable.APIKey)
	if c.Airtable.APIKey == "" {
		if value, ok := os.LookupEnv(airtableAPIKeyEnvironment); ok {
			c.Airtable.APIKey = strings.TrimSpace(value)
		}
	}
	c.Airtable.TokenFile = strings.TrimSpace(c.Airtable.TokenFile)
	if c.Airtable.APIKey == "" && c.Airtable.TokenFile != "" {
		path, err := expandPath(c.Airtable.TokenFile)
		if err != nil {
			return fmt.Errorf("airtable.token_file: %w", err)
		}
		c.Airtable.TokenFile = path
		token, err := readTokenFile(path)
		if err != nil {
			return fmt.Errorf("airtable.token_file: %w", err)
		}
		c.Airtable.APIKey = token
	}

	c.Airtable.BaseID = strings.TrimSpace(c.Airtable.BaseID)
	if c.Airtable.BaseID == "" {
		if value, ok := os.LookupEnv(airtableBaseIDEnvironment); ok {
			c.Airtable.BaseID = strings.TrimSpace(value)
		}
	}
	c.Airtable.BaseURL = strings.TrimRight(strings.TrimSpace(c.Airtable.BaseURL), "/")
	if c.Airtable.BaseURL == "" {
		c.Airtable.BaseURL = defaultAirtableBaseURL
	}
	if c.Airtable.RequestTimeout == 0 {
		c.Airtable.RequestTimeout = defaultRequestTimeout
	}
	return nil
}

// readTokenFile returns the first non-blank line of the token file. A missing
// file yields an empty token so validation can report the missing key.
func readTokenFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", scanner.Err()
}

func (c *Config) normalizeTables() {
	c.Tables.Students = strings.TrimSpace(c.Tables.Students)
	if c.Tables.Students == "" {
		c.Tables.Students = defaultStudentsTable
	}
	c.Tables.Scores = strings.TrimSpace(c.Tables.Scores)
	if c.Tables.Scores == "" {
		c.Tables.Scores = defaultScoresTable
	}
}

func (c *Config) normalizeImport() error {
	if strings.TrimSpace(c.Import.Dir) == "" {
		c.Import.Dir = defaultImportDir
	}
	var err error
	if c.Import.Dir, err = expandPath(c.Import.Dir); err != nil {
		return fmt.Errorf("import.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
