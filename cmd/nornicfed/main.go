// Package main provides the NornicFed CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/config"
	"github.com/orneryd/nornicfed/pkg/datasource/file"
	"github.com/orneryd/nornicfed/pkg/logging"
	"github.com/orneryd/nornicfed/pkg/schema"
	"github.com/orneryd/nornicfed/pkg/session"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// schemaWorkers bounds concurrent schema resolution for "schema --all".
const schemaWorkers = 4

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nornicfed",
		Short: "NornicFed - federated property graph catalog",
		Long: `NornicFed mounts graph data sources (memory, BadgerDB, graph files, Neo4j)
under namespaces and resolves qualified graph names and their schemas.

Graph names take the form <namespace>.<graph>; a name without a namespace
refers to the session namespace.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (env NORNICFED_* overrides)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "NornicFed v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "namespaces",
		Short: "List mounted namespaces",
		Args:  cobra.NoArgs,
		RunE:  withSession(runNamespaces),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "graphs [namespace]",
		Short: "List graphs, optionally in one namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  withSession(runGraphs),
	})

	schemaCmd := &cobra.Command{
		Use:   "schema [graph...]",
		Short: "Print graph schemas",
		RunE:  withSession(runSchema),
	}
	schemaCmd.Flags().Bool("all", false, "Print the schema of every graph")
	rootCmd.AddCommand(schemaCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "import [file] [graph]",
		Short: "Import a Neo4j export (JSON or YAML) into a graph",
		Args:  cobra.ExactArgs(2),
		RunE:  withSession(runImport),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "compare [graph] [graph]",
		Short: "Compare the schemas of two graphs",
		Args:  cobra.ExactArgs(2),
		RunE:  withSession(runCompare),
	})

	return rootCmd
}

type sessionFunc func(ctx context.Context, cmd *cobra.Command, args []string, sess *session.Session) error

// withSession loads configuration, opens a session with the configured sources
// and closes it when fn returns.
func withSession(fn sessionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadFromEnvOrFile(path)
		if err != nil {
			return err
		}

		logger := logging.New(cfg.Logging)
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := session.FromConfig(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer sess.Close()

		return fn(ctx, cmd, args, sess)
	}
}

func runNamespaces(ctx context.Context, cmd *cobra.Command, _ []string, sess *session.Session) error {
	qc := sess.BeginQuery()

	var rows []namespaceRow
	for _, ns := range qc.Namespaces() {
		ds, err := qc.DataSource(ns)
		if err != nil {
			return err
		}
		names, err := ds.GraphNames(ctx)
		if err != nil {
			return fmt.Errorf("list %s: %w", ns, err)
		}
		rows = append(rows, namespaceRow{
			Namespace: ns,
			Source:    sourceKind(ds),
			Graphs:    len(names),
			Session:   ns == qc.SessionNamespace(),
		})
	}
	return renderNamespaces(cmd.OutOrStdout(), rows)
}

func runGraphs(ctx context.Context, cmd *cobra.Command, args []string, sess *session.Session) error {
	names, err := sess.Graphs(ctx)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		filtered := names[:0]
		for _, n := range names {
			if string(n.Namespace) == args[0] {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}
	return renderGraphs(cmd.OutOrStdout(), names)
}

func runSchema(ctx context.Context, cmd *cobra.Command, args []string, sess *session.Session) error {
	all, _ := cmd.Flags().GetBool("all")

	var names []catalog.QualifiedGraphName
	if all {
		listed, err := sess.Graphs(ctx)
		if err != nil {
			return err
		}
		names = listed
	} else {
		if len(args) == 0 {
			return fmt.Errorf("schema: name at least one graph or pass --all")
		}
		for _, arg := range args {
			qgn, err := sess.ParseName(arg)
			if err != nil {
				return err
			}
			names = append(names, qgn)
		}
	}

	schemas, err := resolveSchemas(ctx, sess.BeginQuery(), names)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, qgn := range names {
		renderSchema(out, qgn, schemas[i])
	}
	return nil
}

// resolveSchemas resolves every schema concurrently against one snapshot.
// Results are in the order of names.
func resolveSchemas(ctx context.Context, qc *catalog.QueryCatalog, names []catalog.QualifiedGraphName) ([]*schema.Schema, error) {
	schemas := make([]*schema.Schema, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(schemaWorkers)

	for i, qgn := range names {
		i, qgn := i, qgn
		g.Go(func() error {
			s, _, err := qc.ResolveSchema(ctx, qgn)
			if err != nil {
				return fmt.Errorf("schema %s: %w", qgn, err)
			}
			schemas[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return schemas, nil
}

func runImport(ctx context.Context, cmd *cobra.Command, args []string, sess *session.Session) error {
	qgn, err := sess.ParseName(args[1])
	if err != nil {
		return err
	}

	g, err := file.ReadGraphFile(args[0])
	if err != nil {
		return err
	}
	defer g.Close()

	if err := sess.StoreByName(ctx, qgn, g); err != nil {
		return err
	}

	nodes, _ := g.NodeCount()
	edges, _ := g.EdgeCount()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s: %d nodes, %d relationships\n", color.GreenString("imported"), qgn, nodes, edges)
	if qgn.Namespace == sess.SessionNamespace() {
		fmt.Fprintln(out, color.YellowString("note: the session namespace is not persisted; mount a badger or file source to keep the graph"))
	}
	return nil
}

func runCompare(ctx context.Context, cmd *cobra.Command, args []string, sess *session.Session) error {
	var names [2]catalog.QualifiedGraphName
	for i, arg := range args {
		qgn, err := sess.ParseName(arg)
		if err != nil {
			return err
		}
		names[i] = qgn
	}

	schemas, err := resolveSchemas(ctx, sess.BeginQuery(), names[:])
	if err != nil {
		return err
	}
	return renderDiff(cmd.OutOrStdout(), names[0], names[1], schemas[0], schemas[1])
}
