package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sheetsync-go/internal/cli/output"
	"github.com/yndnr/sheetsync-go/internal/core/address"
	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/server/httpserver/handler"
)

// nowMillis is swapped in tests.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// ChangesCommand returns the changes command.
func ChangesCommand() *cli.Command {
	return &cli.Command{
		Name:  "changes",
		Usage: "Fetch rows modified after a sync timestamp",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "since",
				Usage: "Last sync timestamp in milliseconds; 0 fetches everything",
			},
			&cli.StringFlag{
				Name:  "xlsx",
				Usage: "Write the fetched rows to an .xlsx file instead of printing them",
			},
		},
		Action: runChanges,
	}
}

type changesView struct {
	*service.ChangesResult
}

func (v changesView) Table() *output.Table {
	return output.GridTable(v.Rows, mirrorStart(v.LastColumn))
}

// mirrorStart is the sheet column of the first mirrored cell.
func mirrorStart(lastCol int) int {
	if lastCol < 1 {
		return 1
	}
	start, _ := address.MirrorRange(lastCol)
	return start
}

type exportView struct {
	File      string `json:"file"`
	Rows      int    `json:"rows"`
	AllSynced bool   `json:"all_synced"`
	Latest    int64  `json:"latest"`
}

func (v exportView) Table() *output.Table {
	return output.KeyValueTable("file", v.File, "rows", v.Rows, "all_synced", v.AllSynced, "latest", v.Latest)
}

func runChanges(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	workbook, sheet, err := s.Target()
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := s.Client()
	if err != nil {
		return err
	}
	res, err := client.Changes(ctx, workbook, sheet, c.Int64("since"))
	if err != nil {
		return err
	}

	if path := c.String("xlsx"); path != "" {
		if err := output.WriteXLSX(path, sheet, output.GridTable(res.Rows, mirrorStart(res.LastColumn))); err != nil {
			return err
		}
		return render(c, s, exportView{File: path, Rows: len(res.Rows), AllSynced: res.AllSynced, Latest: res.Latest})
	}
	return render(c, s, changesView{res})
}

// UpdateCommand returns the update command.
func UpdateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Submit versioned cell updates",
		Description: "Reads updates from --file (a JSON array or {\"updates\": [...]}, \"-\" for stdin),\n" +
			"or builds a single update from --row, --col and --value. The proposed\n" +
			"version is always --expected-version + 1.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON file with updates"},
			&cli.IntFlag{Name: "row", Usage: "Sheet row of the cell"},
			&cli.StringFlag{Name: "col", Usage: "Column label of the cell"},
			&cli.StringFlag{Name: "value", Usage: "Cell value; parsed as JSON when valid, else a string"},
			&cli.Int64Flag{Name: "expected-version", Usage: "Version the cell is expected to hold"},
			&cli.Int64Flag{Name: "last-modified", Usage: "Row timestamp in milliseconds (default now)"},
		},
		Action: runUpdate,
	}
}

type updateView struct {
	*handler.UpdateResponse
}

func (v updateView) Table() *output.Table {
	t := output.KeyValueTable("accepted", v.Accepted, "conflicts", len(v.Conflicts), "token_used", v.TokenUsed)
	for _, cf := range v.Conflicts {
		t.AddRow(
			fmt.Sprintf("%s%d", cf.Column, cf.Row),
			fmt.Sprintf("%s (expected %d, proposed %d, current %d)", cf.Reason, cf.ExpectedVersion, cf.ProposedVersion, cf.CurrentVersion),
		)
	}
	return t
}

func runUpdate(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	workbook, sheet, err := s.Target()
	if err != nil {
		return err
	}

	updates, err := updatesFromInput(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := s.Client()
	if err != nil {
		return err
	}
	res, err := client.Update(ctx, workbook, sheet, updates)
	if err != nil {
		return err
	}
	return render(c, s, updateView{res})
}

func updatesFromInput(c *cli.Context) ([]domain.Update, error) {
	if path := c.String("file"); path != "" {
		data, err := readInput(c, path)
		if err != nil {
			return nil, err
		}
		var wrapped handler.UpdateRequest
		if err := decodeListOrWrapped(data, &wrapped.Updates, &wrapped); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return wrapped.Updates, nil
	}

	if !c.IsSet("row") || c.String("col") == "" || !c.IsSet("value") {
		return nil, fmt.Errorf("either --file or --row, --col and --value are required")
	}
	expected := c.Int64("expected-version")
	return []domain.Update{{
		Row:             c.Int("row"),
		Column:          strings.ToUpper(c.String("col")),
		Value:           domain.CellPayload{A: expected + 1, V: jsonValue(c.String("value"))},
		LastModified:    lastModified(c),
		ExpectedVersion: expected,
	}}, nil
}

// PushCommand returns the push command.
func PushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Append records as new rows",
		Description: "Reads records from --file (a JSON array or {\"entries\": [...]}, \"-\" for stdin),\n" +
			"or builds one record from repeated --cell COLUMN=VALUE flags.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON file with records"},
			&cli.StringSliceFlag{Name: "cell", Usage: "COLUMN=VALUE; value parsed as JSON when valid"},
			&cli.StringFlag{Name: "type", Usage: "Row type marker (default d)"},
			&cli.Int64Flag{Name: "last-modified", Usage: "Row timestamp in milliseconds (default now)"},
		},
		Action: runPush,
	}
}

type pushView struct {
	*service.AppendResult
}

func (v pushView) Table() *output.Table {
	t := &output.Table{Headers: []string{"ROW", "CELLS"}}
	for _, r := range v.Rows {
		t.AddRow(strconv.Itoa(r.Row), strconv.Itoa(r.Cells))
	}
	return t
}

func runPush(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	workbook, sheet, err := s.Target()
	if err != nil {
		return err
	}

	records, err := recordsFromInput(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := s.Client()
	if err != nil {
		return err
	}
	res, err := client.Push(ctx, workbook, sheet, records)
	if err != nil {
		return err
	}
	return render(c, s, pushView{res})
}

func recordsFromInput(c *cli.Context) ([]domain.Record, error) {
	if path := c.String("file"); path != "" {
		data, err := readInput(c, path)
		if err != nil {
			return nil, err
		}
		var wrapped handler.PushRequest
		if err := decodeListOrWrapped(data, &wrapped.Entries, &wrapped); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return wrapped.Entries, nil
	}

	cells := c.StringSlice("cell")
	if len(cells) == 0 {
		return nil, fmt.Errorf("either --file or at least one --cell is required")
	}
	rec := domain.Record{LastModified: lastModified(c), Type: c.String("type")}
	for _, kv := range cells {
		col, val, ok := strings.Cut(kv, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("--cell %q: want COLUMN=VALUE", kv)
		}
		rec.Cells = append(rec.Cells, domain.CellValue{Column: strings.ToUpper(col), Value: jsonValue(val)})
	}
	return []domain.Record{rec}, nil
}

// AddColumnCommand returns the add-column command.
func AddColumnCommand() *cli.Command {
	return &cli.Command{
		Name:  "add-column",
		Usage: "Add a named column to the sheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Column name", Required: true},
			&cli.StringFlag{Name: "metadata", Usage: "Column metadata as JSON"},
			&cli.Int64Flag{Name: "last-modified", Usage: "Timestamp in milliseconds (default now)"},
		},
		Action: runAddColumn,
	}
}

type columnView struct {
	*service.ColumnResult
}

func (v columnView) Table() *output.Table {
	return output.KeyValueTable(
		"success", v.Success,
		"column", v.Column,
		"column_index", v.ColumnIndex,
		"token_used", v.TokenUsed,
	)
}

func runAddColumn(c *cli.Context) error {
	s, err := ResolveSettings(c)
	if err != nil {
		return err
	}
	workbook, sheet, err := s.Target()
	if err != nil {
		return err
	}

	req := handler.ColumnRequest{Name: c.String("name"), LastModified: lastModified(c)}
	if meta := c.String("metadata"); meta != "" {
		if !json.Valid([]byte(meta)) {
			return fmt.Errorf("--metadata is not valid JSON")
		}
		req.Metadata = json.RawMessage(meta)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := s.Client()
	if err != nil {
		return err
	}
	res, err := client.AddColumn(ctx, workbook, sheet, req)
	if err != nil {
		return err
	}
	return render(c, s, columnView{res})
}

// readInput reads a file, or the app's reader when path is "-".
func readInput(c *cli.Context, path string) ([]byte, error) {
	if path == "-" {
		r := c.App.Reader
		if r == nil {
			r = os.Stdin
		}
		return io.ReadAll(r)
	}
	return os.ReadFile(path)
}

// decodeListOrWrapped accepts a bare JSON array into list, or an object
// into wrapped.
func decodeListOrWrapped(data []byte, list, wrapped any) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, list)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(wrapped)
}

// jsonValue keeps s when it is a JSON document and quotes it otherwise, so
// --value 42 sends a number and --value hello a string.
func jsonValue(s string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

func lastModified(c *cli.Context) int64 {
	if c.IsSet("last-modified") {
		return c.Int64("last-modified")
	}
	return nowMillis()
}
