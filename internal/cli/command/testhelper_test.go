package command

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/sheetsync-go/internal/cli/config"
	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/server/httpserver"
	"github.com/yndnr/sheetsync-go/internal/storage/memory"
)

const testToken = "tok"

// testServer is a real router over an in-memory sheet with three data rows
// modified at 300, 200 and 100.
type testServer struct {
	*httptest.Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	store.AddSheet("book-1", "Sheet1", [][]string{
		{"last_modified", "id", "type", "", "m_last_modified", "m_id", "m_type"},
		{"300", "1", "d", "", "300", "1", "d"},
		{"200", "2", "d", "", "200", "2", "d"},
		{"100", "3", "d", "", "100", "3", "d"},
	})
	workbooks, err := domain.NewWorkbooks(map[string]string{"dev": "book-1"})
	if err != nil {
		t.Fatalf("NewWorkbooks: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := service.NewEngine(workbooks, service.StaticSource{Store: store}, memory.NewCache(),
		service.WithLogger(log))

	srv := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{
		Sync:         engine,
		Logger:       log,
		PrivateToken: testToken,
		Version:      "test",
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store}
}

// isolateEnv clears SHEETSYNC_* variables and returns a config path inside
// a temp dir.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{config.EnvServer, config.EnvToken, config.EnvOutput, config.EnvWorkbook, config.EnvSheet, config.EnvCAFile} {
		t.Setenv(k, "")
	}
	return filepath.Join(t.TempDir(), "cli.yaml")
}

// runCLI runs the app against srv with the token, workbook dev and sheet
// Sheet1 preset. args start with any extra global flags.
func runCLI(t *testing.T, srv *testServer, args ...string) (string, error) {
	t.Helper()
	cfgPath := isolateEnv(t)

	full := []string{"sheetsync-cli",
		"--cli-config", cfgPath,
		"--server", srv.URL,
		"--token", testToken,
		"--workbook", "dev",
		"--sheet", "Sheet1",
	}
	return runApp(t, "", append(full, args...)...)
}

// runApp runs the app with raw args and stdin.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)
	err := app.Run(args)
	return out.String(), err
}
