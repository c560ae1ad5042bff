package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/app"
	"github.com/mmrzaf/jsonlgen/internal/config"
	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/hashing"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/runs"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/schemas"
	"github.com/mmrzaf/jsonlgen/internal/logging"
	"github.com/mmrzaf/jsonlgen/internal/registry"
	"github.com/mmrzaf/jsonlgen/internal/timeutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type globalOptions struct {
	runsDB   string
	logLevel string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(cfg)
	rootCmd.SetArgs(rewriteLegacyArgs(os.Args[1:]))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	g := &globalOptions{}
	req := &domain.GenerateRequest{}
	var (
		seed       int64
		targetKind string
		targetDSN  string
		table      string
	)

	rootCmd := &cobra.Command{
		Use:   "jsonlgen [path_to_save_files]",
		Short: "Generate synthetic JSON Lines data from a field schema",
		Long: "Generate synthetic records from a schema of \"type:source\" strings and write them\n" +
			"as JSON Lines files, to stdout (file_count 0) or into a SQL table.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(g)
			req.SavePath = cfg.SavePath
			if len(args) == 1 {
				req.SavePath = args[0]
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			if targetKind != "" || targetDSN != "" || table != "" {
				req.Target = &domain.TargetConfig{Kind: targetKind, DSN: targetDSN, Table: table}
			}
			req.Workers = capWorkers(logger, req.Workers)

			svc, closeRepo, err := newService(g, logger, cmd.OutOrStdout())
			if err != nil {
				return fail(logger, err)
			}
			defer closeRepo()

			run, err := svc.Run(cmd.Context(), req)
			if err != nil {
				return fail(logger, err)
			}
			logger.Infow("cli.done", map[string]any{"run_id": run.ID, "status": string(run.Status), "sink": run.Sink})
			return nil
		},
	}
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.runsDB, "runs-db", cfg.RunsDB, "Run history database (SQLite path or PostgreSQL DSN); empty disables history")
	pf.StringVar(&g.logLevel, "log-level", cfg.LogLevel, "Log level (debug|info|warn|error)")

	f := rootCmd.Flags()
	f.IntVar(&req.FileCount, "file_count", cfg.FileCount, "Number of files to generate. If 0, prints to console")
	f.StringVar(&req.FileName, "file_name", cfg.FileName, "Base name for the output files")
	f.StringVar(&req.Prefix, "prefix", cfg.Prefix, "File name suffix style (count|random|uuid)")
	f.StringVar(&req.DataSchema, "data_schema", cfg.DataSchema, "Schema as a JSON/YAML file path or an inline JSON string")
	f.IntVar(&req.DataLines, "data_lines", cfg.DataLines, "Number of data lines per file")
	f.BoolVar(&req.ClearPath, "clear_path", cfg.ClearPath, "Delete existing <file_name>*.json[l] files in the save path first")
	f.IntVarP(&req.Workers, "workers", "w", cfg.Workers, "Number of worker goroutines, capped at the CPU count")
	f.Int64Var(&seed, "seed", 0, "Seed for reproducible output")
	f.BoolVar(&req.CollectAll, "strict-all", false, "Report every invalid schema field instead of stopping at the first")
	f.StringVar(&targetKind, "target-kind", "", "Write to a SQL table instead of files (sqlite|postgres)")
	f.StringVar(&targetDSN, "target-dsn", "", "Target database DSN or SQLite path")
	f.StringVar(&table, "table", "", "Target table name")

	rootCmd.AddCommand(validateCmd(g, cfg), runsCmd(g), checkTargetCmd(g))
	return rootCmd
}

func newLogger(g *globalOptions) *logging.Logger {
	return logging.NewLogger(g.logLevel).WithComponent("cli")
}

func newService(g *globalOptions, logger *logging.Logger, stdout io.Writer) (*app.RunService, func(), error) {
	var runRepo runs.Repository
	closeRepo := func() {}
	if g.runsDB != "" {
		runRepo = runs.Open(g.runsDB)
		if err := runRepo.Init(); err != nil {
			return nil, nil, fmt.Errorf("open run history: %w", err)
		}
		closeRepo = func() { _ = runRepo.Close() }
	}
	schemaRepo := schemas.NewFileRepository(logger.WithComponent("schema"))
	svc := app.NewRunService(schemaRepo, runRepo, registry.DefaultGeneratorRegistry(), logger, app.WithStdout(stdout))
	return svc, closeRepo, nil
}

func capWorkers(logger *logging.Logger, workers int) int {
	cores := runtime.NumCPU()
	if workers > cores {
		logger.Warnw("cli.workers_capped", map[string]any{"requested": workers, "cpu_cores": cores})
		return cores
	}
	return workers
}

func fail(logger *logging.Logger, err error) error {
	fields := map[string]any{"error": err.Error()}
	if code := domain.CodeOf(err); code != "" {
		fields["code"] = string(code)
	}
	logger.Errorw("cli.aborted", fields)
	return err
}

func validateCmd(g *globalOptions, cfg *config.Config) *cobra.Command {
	var (
		schema     string
		collectAll bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile a schema and print the resulting plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(g)
			svc := app.NewRunService(schemas.NewFileRepository(logger.WithComponent("schema")), nil,
				registry.DefaultGeneratorRegistry(), logger)

			plan, err := svc.Plan(schema, collectAll)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Validation failed: %v\n", err)
				return fail(logger, err)
			}
			hash, err := hashing.HashSchema(plan)
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(map[string]any{"schema_hash": hash, "fields": plan.Fields}, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&schema, "data_schema", cfg.DataSchema, "Schema as a JSON/YAML file path or an inline JSON string")
	cmd.Flags().BoolVar(&collectAll, "strict-all", false, "Report every invalid field")
	return cmd
}

func runsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run history",
	}

	var (
		limit  int
		status string
		since  string
		format string
	)

	openRepo := func() (runs.Repository, error) {
		if g.runsDB == "" {
			return nil, fmt.Errorf("run history is disabled (--runs-db is empty)")
		}
		repo := runs.Open(g.runsDB)
		if err := repo.Init(); err != nil {
			return nil, err
		}
		return repo, nil
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			var sinceTime time.Time
			if since != "" {
				sinceTime, err = timeutil.ParseSince(since, time.Now())
				if err != nil {
					return err
				}
			}

			list, err := repo.List(limit, status, sinceTime)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				data, _ := json.MarshalIndent(list, "", "  ")
				fmt.Fprintln(out, string(data))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSINK\tRECORDS\tSTATUS\tSTARTED")
			for _, r := range list {
				id := r.ID
				if len(id) > 8 {
					id = id[:8]
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					id, r.Sink, r.Records, r.Status, r.StartedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Limit results")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&since, "since", "", "Only runs started after this time (RFC 3339 or a duration such as 7d)")
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			run, err := repo.Get(args[0])
			if err != nil {
				return err
			}
			data, _ := yaml.Marshal(run)
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			if len(run.Stats) > 0 {
				var stats domain.RunStats
				if err := json.Unmarshal(run.Stats, &stats); err == nil {
					statsYAML, _ := yaml.Marshal(map[string]domain.RunStats{"stats": stats})
					fmt.Fprint(cmd.OutOrStdout(), string(statsYAML))
				}
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func checkTargetCmd(g *globalOptions) *cobra.Command {
	t := &domain.TargetConfig{}
	cmd := &cobra.Command{
		Use:   "check-target",
		Short: "Test the connection to a SQL target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			check, err := app.CheckTarget(cmd.Context(), t)
			data, _ := yaml.Marshal(check)
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			if err != nil {
				return fail(newLogger(g), err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&t.Kind, "target-kind", "", "Target kind (sqlite|postgres)")
	cmd.Flags().StringVar(&t.DSN, "target-dsn", "", "Target database DSN or SQLite path")
	cmd.Flags().StringVar(&t.Table, "table", "", "Target table name")
	return cmd
}
