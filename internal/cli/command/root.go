package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sheetsync-go/internal/cli/config"
	"github.com/yndnr/sheetsync-go/internal/cli/connection"
	"github.com/yndnr/sheetsync-go/internal/cli/output"
	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/infra/buildinfo"
	"github.com/yndnr/sheetsync-go/internal/infra/tlsroots"
)

// requestTimeout bounds a single command's round trip. Full fetches of
// large sheets are the slow case.
const requestTimeout = 2 * time.Minute

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "sheetsync-cli",
		Usage:   "SheetSync command-line client",
		Version: buildinfo.Get().Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ChangesCommand(),
			UpdateCommand(),
			PushCommand(),
			AddColumnCommand(),
			CacheClearCommand(),
			HealthCommand(),
			VersionCommand(),
			ConfigCommand(),
		},
	}
}

// globalFlags returns the global CLI flags. They carry no EnvVars since
// environment handling lives in config.Merge.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "SheetSync server URL (env SHEETSYNC_SERVER)",
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "Private API token (env SHEETSYNC_TOKEN)",
		},
		&cli.StringFlag{
			Name:    "workbook",
			Aliases: []string{"w"},
			Usage:   "Workbook alias (env SHEETSYNC_WORKBOOK)",
		},
		&cli.StringFlag{
			Name:  "sheet",
			Usage: "Sheet title (env SHEETSYNC_SHEET)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml (env SHEETSYNC_OUTPUT)",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM file of extra trusted roots for https servers (env SHEETSYNC_CA_FILE)",
		},
		&cli.StringFlag{
			Name:  "cli-config",
			Usage: "CLI config file",
			Value: config.DefaultConfigPath(),
		},
	}
}

// Settings are the resolved global options for one invocation.
type Settings struct {
	Server   string
	Token    string
	Workbook string
	Sheet    string
	Output   output.Format
	CAFile   string

	// Config is the merged file and environment configuration, with flag
	// overrides applied.
	Config *config.CLIConfig
}

// ResolveSettings applies flag > environment > file > default precedence.
func ResolveSettings(c *cli.Context) (*Settings, error) {
	cfg, err := config.Load(c.String("cli-config"))
	if err != nil {
		return nil, err
	}
	cfg = config.Merge(cfg, config.Environ())

	for name, dst := range map[string]*string{
		"server":   &cfg.Server,
		"token":    &cfg.Token,
		"workbook": &cfg.Workbook,
		"sheet":    &cfg.Sheet,
		"output":   &cfg.Output,
		"ca-file":  &cfg.CAFile,
	} {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}
	return &Settings{
		Server:   cfg.Server,
		Token:    cfg.Token,
		Workbook: cfg.Workbook,
		Sheet:    cfg.Sheet,
		Output:   format,
		CAFile:   cfg.CAFile,
		Config:   cfg,
	}, nil
}

// Client returns an HTTP client for the resolved server.
func (s *Settings) Client() (*connection.HTTPClient, error) {
	var opts []connection.ClientOption
	tlsCfg, err := tlsroots.LoadClientConfig(s.CAFile)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		opts = append(opts, connection.WithTLSConfig(tlsCfg))
	}
	return connection.NewHTTPClient(s.Server, s.Token, opts...), nil
}

// Target returns the workbook and sheet, failing when either is unset.
func (s *Settings) Target() (workbook, sheet string, err error) {
	if s.Workbook == "" {
		return "", "", fmt.Errorf("workbook is required (--workbook or %s)", config.EnvWorkbook)
	}
	if s.Sheet == "" {
		return "", "", fmt.Errorf("sheet is required (--sheet or %s)", config.EnvSheet)
	}
	return s.Workbook, s.Sheet, nil
}

// render writes data to the app's writer in the selected format.
func render(c *cli.Context, s *Settings, data any) error {
	return output.Write(c.App.Writer, s.Output, data)
}

func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, requestTimeout)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// Hint suggests a next step for server errors a user can fix, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, domain.ErrSyncStateMismatch):
		return "the sheet has nothing as recent as --since; run changes --since 0 to resync"
	case errors.Is(err, domain.ErrUnauthorized):
		return "check --token or " + config.EnvToken
	case errors.Is(err, domain.ErrUnknownWorkbook):
		return "the alias must be listed under workbooks in the server config"
	case errors.Is(err, domain.ErrRateLimited):
		return "the server is rate limiting this client; retry shortly"
	}
	return ""
}
