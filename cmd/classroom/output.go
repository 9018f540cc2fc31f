package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
)

type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "", formatTable:
		return &printer{w: w, format: formatTable}, nil
	case formatYAML:
		return &printer{w: w, format: formatYAML}, nil
	}
	return nil, errors.Errorf("unknown output format %q (want table or yaml)", format)
}

// list prints items as YAML, or as a table built from headers and rows.
func (p *printer) list(items any, headers []string, rows [][]string) error {
	if p.format == formatYAML {
		return p.yaml(items)
	}
	if len(rows) == 0 {
		p.message("Nothing to show.")
		return nil
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// item prints a single value: YAML in both formats, since one record reads
// better as key/value pairs than as a one-row table.
func (p *printer) item(v any) error {
	return p.yaml(v)
}

func (p *printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return enc.Close()
}

// message prints a status line. It is suppressed in YAML mode so the output
// stays parseable.
func (p *printer) message(format string, args ...any) {
	if p.format == formatYAML {
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
