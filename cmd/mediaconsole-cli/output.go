package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"github.com/target/media-console/internal/domain/model"
)

// preferredColumns are shown first, in this order, when items carry them.
//
//nolint:gochecknoglobals // static column ordering
var preferredColumns = []string{"id", "name", "title", "email", "role", "status", "type", "created_at", "updated_at"}

const maxColumns = 7

//nolint:gochecknoglobals // static palette keyed by model.StatusColor
var statusPalette = map[string]*color.Color{
	"green":  color.New(color.FgGreen),
	"red":    color.New(color.FgRed),
	"blue":   color.New(color.FgBlue),
	"yellow": color.New(color.FgYellow),
	"gray":   color.New(color.FgHiBlack),
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRawJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, werr := fmt.Fprintln(w, string(raw))
		return werr
	}
	return printJSON(w, v)
}

func bindDataFlag(cmd *cobra.Command, data *string) {
	cmd.Flags().StringVarP(data, "data", "d", "", "JSON body, @file to read a file, or - for stdin")
	_ = cmd.MarkFlagRequired("data")
}

// readBody resolves a --data value into a JSON document.
func readBody(cmd *cobra.Command, data string) (json.RawMessage, error) {
	var (
		raw []byte
		err error
	)
	switch {
	case data == "-":
		raw, err = io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(data, "@"):
		raw, err = os.ReadFile(strings.TrimPrefix(data, "@"))
	default:
		raw = []byte(data)
	}
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return json.RawMessage(raw), nil
}

// renderList prints items as a borderless table followed by a window summary.
func renderList(w io.Writer, res model.ListResult) error {
	rows := make([]map[string]any, 0, len(res.Items))
	for _, item := range res.Items {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			obj = map[string]any{"value": string(item)}
		}
		rows = append(rows, obj)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No items.")
		return err
	}

	columns := tableColumns(rows)
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(columns))
		for i, col := range columns {
			line[i] = formatCell(col, row[col])
		}
		cells = append(cells, line)
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(col)
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	if err := table.Bulk(cells); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nShowing %d-%d of %d\n", res.Skip+1, res.Skip+len(rows), max(res.Total, res.Skip+len(rows)))
	return err
}

// tableColumns picks preferred keys present in any row, then fills with the remaining keys alphabetically.
func tableColumns(rows []map[string]any) []string {
	seen := map[string]bool{}
	for _, row := range rows {
		for k := range row {
			seen[k] = true
		}
	}

	cols := make([]string, 0, maxColumns)
	for _, k := range preferredColumns {
		if seen[k] {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	cols = append(cols, rest...)
	if len(cols) > maxColumns {
		cols = cols[:maxColumns]
	}
	return cols
}

func formatCell(column string, v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		switch {
		case column == "status" || strings.HasSuffix(column, "_status"):
			return colorStatus(val)
		case strings.HasSuffix(column, "_at"):
			return model.FormatTimestamp(val)
		}
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func colorStatus(status string) string {
	c, ok := statusPalette[model.StatusColor(status)]
	if !ok {
		return status
	}
	return c.Sprint(status)
}
