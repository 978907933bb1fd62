package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sheetsync-go/internal/cli/config"
	"github.com/yndnr/sheetsync-go/internal/cli/output"
	"github.com/yndnr/sheetsync-go/internal/infra/buildinfo"
	"github.com/yndnr/sheetsync-go/internal/server/httpserver/handler"
)

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check server health",
		Action: runHealth,
	}
}

type healthView struct {
	*handler.HealthResponse
	Server string `json:"server"`
}

func (v healthView) Table() *output.Table {
	return output.KeyValueTable("status", v.Status, "version", v.Version, "server", v.Server, "time", v.Time)
}

func runHealth(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	client, err := s.Client()
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check against %s failed: %w", client.BaseURL(), err)
	}
	return render(c, s, healthView{HealthResponse: res, Server: client.BaseURL()})
}

// CacheClearCommand returns the cache-clear command.
func CacheClearCommand() *cli.Command {
	return &cli.Command{
		Name:   "cache-clear",
		Usage:  "Drop every cached window and column count on the server",
		Action: runCacheClear,
	}
}

type clearedView struct {
	Cleared bool `json:"cleared"`
}

func (v clearedView) Table() *output.Table {
	return output.KeyValueTable("cleared", v.Cleared)
}

func runCacheClear(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := s.Client()
	if err != nil {
		return err
	}
	if err := client.ClearCache(ctx); err != nil {
		return err
	}
	return render(c, s, clearedView{Cleared: true})
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print client build information",
		Action: func(c *cli.Context) error {
			s, err := ResolveSettings(c)
			if err != nil {
				return err
			}
			return render(c, s, versionView(buildinfo.Get()))
		},
	}
}

type versionView buildinfo.Info

func (v versionView) Table() *output.Table {
	return output.KeyValueTable(
		"version", v.Version,
		"commit", v.Commit,
		"build_time", v.BuildTime,
		"go_version", v.GoVersion,
	)
}

// ConfigCommand returns the config command group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the CLI config file",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the resolved settings (token redacted)",
				Action: runConfigShow,
			},
			{
				Name:   "save",
				Usage:  "Write the resolved settings to the CLI config file",
				Action: runConfigSave,
			},
		},
	}
}

type configView struct {
	Server   string `json:"server"`
	Token    string `json:"token,omitempty"`
	Workbook string `json:"workbook,omitempty"`
	Sheet    string `json:"sheet,omitempty"`
	Output   string `json:"output"`
	CAFile   string `json:"ca_file,omitempty"`
	File     string `json:"file"`
}

func (v configView) Table() *output.Table {
	return output.KeyValueTable(
		"server", v.Server,
		"token", v.Token,
		"workbook", v.Workbook,
		"sheet", v.Sheet,
		"output", v.Output,
		"ca-file", v.CAFile,
		"file", v.File,
	)
}

func newConfigView(c *cli.Context, cfg *config.CLIConfig) configView {
	v := configView{
		Server:   cfg.Server,
		Workbook: cfg.Workbook,
		Sheet:    cfg.Sheet,
		Output:   cfg.Output,
		CAFile:   cfg.CAFile,
		File:     c.String("cli-config"),
	}
	if cfg.Token != "" {
		v.Token = "********"
	}
	return v
}

func runConfigShow(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	return render(c, s, newConfigView(c, s.Config))
}

func runConfigSave(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	if err := config.Save(s.Config, c.String("cli-config")); err != nil {
		return err
	}
	return render(c, s, newConfigView(c, s.Config))
}
