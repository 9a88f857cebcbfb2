package config

const (
	defaultConfigPath         = "~/.config/kgsa/config.toml"
	defaultAirtableBaseURL    = "https://api.airtable.com/v0"
	defaultAirtableTokenFile  = ".kgsa-airtable-token.txt"
	defaultRequestTimeout     = 30
	defaultPageDelayMS        = 200
	defaultStudentsTable      = "Students"
	defaultScoresTable        = "Test Scores"
	defaultImportDir          = "./to-import"
	defaultStateDir           = "~/.local/share/kgsa"
	defaultExportDir          = "./.export"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	airtableAPIKeyEnvironment = "AIRTABLE_API_KEY"
	airtableBaseIDEnvironment = "AIRTABLE_BASE_ID"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Airtable: Airtable{
			TokenFile:      defaultAirtableTokenFile,
			BaseURL:        defaultAirtableBaseURL,
			RequestTimeout: defaultRequestTimeout,
			PageDelayMS:    defaultPageDelayMS,
		},
		Tables: Tables{
			Students: defaultStudentsTable,
			Scores:   defaultScoresTable,
		},
		Import: Import{
			Dir: defaultImportDir,
		},
		Paths: Paths{
			StateDir:  defaultStateDir,
			ExportDir: defaultExportDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
