package config

// CLIConfig is the configuration for sheetsync-cli.
type CLIConfig struct {
	Server string `yaml:"server"`
	// Token is sent as X-API-Token.
	Token  string `yaml:"token,omitempty"`
	Output string `yaml:"output"` // table, json, yaml

	// CAFile adds PEM roots for servers with a private CA.
	CAFile string `yaml:"ca_file,omitempty"`

	// Default target for sync commands.
	Workbook string `yaml:"workbook,omitempty"`
	Sheet    string `yaml:"sheet,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://127.0.0.1:3000",
		Output: "table",
	}
}
