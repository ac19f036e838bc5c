package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/datasource/badgerdb"
	"github.com/orneryd/nornicfed/pkg/datasource/file"
	"github.com/orneryd/nornicfed/pkg/datasource/memory"
	"github.com/orneryd/nornicfed/pkg/datasource/neo4j"
	"github.com/orneryd/nornicfed/pkg/schema"
)

type namespaceRow struct {
	Namespace catalog.Namespace
	Source    string
	Graphs    int
	Session   bool
}

func sourceKind(ds catalog.DataSource) string {
	switch ds.(type) {
	case *memory.Source:
		return "memory"
	case *badgerdb.Source:
		return "badger"
	case *file.Source:
		return "file"
	case *neo4j.Source:
		return "neo4j"
	}
	return fmt.Sprintf("%T", ds)
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithHeaderAutoFormat(tw.Off))
}

func renderNamespaces(w io.Writer, rows []namespaceRow) error {
	table := newTable(w)
	table.Header([]string{"NAMESPACE", "SOURCE", "GRAPHS"})
	for _, r := range rows {
		name := string(r.Namespace)
		if r.Session {
			name += " (session)"
		}
		if err := table.Append([]string{name, r.Source, strconv.Itoa(r.Graphs)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderGraphs(w io.Writer, names []catalog.QualifiedGraphName) error {
	if len(names) == 0 {
		fmt.Fprintln(w, color.YellowString("no graphs"))
		return nil
	}

	table := newTable(w)
	table.Header([]string{"NAMESPACE", "GRAPH"})
	for _, n := range names {
		if err := table.Append([]string{string(n.Namespace), string(n.GraphName)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderSchema(w io.Writer, qgn catalog.QualifiedGraphName, s *schema.Schema) {
	fmt.Fprintf(w, "%s  %s\n", color.CyanString(qgn.String()), color.HiBlackString(s.Fingerprint()[:12]))
	fmt.Fprint(w, s.String())
	fmt.Fprintln(w)
}

func renderDiff(w io.Writer, a, b catalog.QualifiedGraphName, sa, sb *schema.Schema) error {
	changes := schema.Diff(sa, sb)
	if len(changes) == 0 {
		fmt.Fprintf(w, "%s %s and %s have the same schema\n", color.GreenString("="), a, b)
		return nil
	}

	fmt.Fprintf(w, "%s -> %s: %d changes\n", a, b, len(changes))
	table := newTable(w)
	table.Header([]string{"ENTITY", "KEY", "CHANGE", a.String(), b.String()})
	for _, c := range changes {
		row := []string{c.Entity, c.Key, colorKind(c.Kind), typeCell(c.From, c.Kind == schema.Added), typeCell(c.To, c.Kind == schema.Removed)}
		if c.Key == "" {
			row[3], row[4] = "", ""
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func colorKind(k schema.ChangeKind) string {
	switch k {
	case schema.Added:
		return color.GreenString(k.String())
	case schema.Removed:
		return color.RedString(k.String())
	default:
		return color.YellowString(k.String())
	}
}

func typeCell(t fmt.Stringer, absent bool) string {
	if absent {
		return "-"
	}
	return t.String()
}
