package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Limetric/dbfixture"
)

var (
	configPath string
	dsnFlag    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "dbfixture",
	Short:         "Load and dump database test fixtures",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "connection string, e.g. sqlite:memory or mysql:user:pw@tcp(host)/db (overrides config and DB_DSN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every SQL statement")
	rootCmd.AddCommand(newLoadCmd(), newDumpCmd(), newDropCmd(), newMigrateCmd(), newExecCmd(), newDialectsCmd(), newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// resolveConfig layers config file, environment and flags, in that order.
func resolveConfig() (dbfixture.Config, error) {
	cfg := dbfixture.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = dbfixture.LoadConfig(configPath); err != nil {
			return dbfixture.Config{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return dbfixture.Config{}, err
	}
	if dsnFlag != "" {
		cfg.DSN = dsnFlag
	}
	if verbose {
		cfg.Debug = true
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, nil
}

func openSession(ctx context.Context) (*dbfixture.Session, dbfixture.Config, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, cfg, err
	}
	s, err := dbfixture.Open(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return s, cfg, nil
}

func newLoadCmd() *cobra.Command {
	var schemaOnly, dump bool
	cmd := &cobra.Command{
		Use:   "load <fixture.toml>...",
		Short: "Recreate fixture tables and import their rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()

			var fixture dbfixture.Fixture
			for _, path := range args {
				f, err := dbfixture.ReadFixtureFile(path)
				if err != nil {
					return err
				}
				fixture = append(fixture, f...)
			}

			s, cfg, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			logger := cfg.Logger

			if cfg.Migrations != "" {
				n, err := s.Migrate(ctx, os.DirFS(cfg.ResolvePath(cfg.Migrations)))
				if err != nil {
					return err
				}
				logger.Info("migrations applied", "count", n)
			}
			if err := s.RunHooks(ctx, cfg, "before_load", cfg.Hooks.BeforeLoad); err != nil {
				return err
			}

			if schemaOnly {
				err = s.CreateTables(ctx, fixture)
			} else {
				err = s.Load(ctx, fixture)
			}
			if err != nil {
				return err
			}

			if err := s.RunHooks(ctx, cfg, "after_load", cfg.Hooks.AfterLoad); err != nil {
				return err
			}
			logger.Info("fixture loaded", "tables", strings.Join(s.Tables(), ","), "took", time.Since(start).Round(time.Millisecond))

			if dump {
				out, err := s.Read(ctx, false)
				if err != nil {
					return err
				}
				return dbfixture.EncodeFixture(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&schemaOnly, "schema-only", false, "create tables without importing rows")
	cmd.Flags().BoolVar(&dump, "dump", false, "print the loaded tables as read back from the database")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var stripID bool
	cmd := &cobra.Command{
		Use:   "dump <table[,table...]>...",
		Short: "Print tables in fixture format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := s.ReadList(ctx, strings.Join(args, ","), stripID)
			if err != nil {
				return err
			}
			return dbfixture.EncodeFixture(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().BoolVar(&stripID, "strip-id", false, "omit identity values and write list rows")
	return cmd
}

func newDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <table>...",
		Short: "Drop tables if they exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, cfg, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, table := range dbfixture.SplitTables(strings.Join(args, ",")) {
				if err := s.DropTable(ctx, table); err != nil {
					return err
				}
				cfg.Logger.Info("dropped table", "table", table)
			}
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [dir]",
		Short: "Apply goose SQL migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, cfg, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var dir string
			switch {
			case len(args) > 0:
				dir = args[0]
			case cfg.Migrations != "":
				dir = cfg.ResolvePath(cfg.Migrations)
			}
			if dir == "" {
				return fmt.Errorf("migrations directory required: dbfixture migrate <dir> or migrations = \"...\" in config")
			}
			n, err := s.Migrate(ctx, os.DirFS(dir))
			if err != nil {
				return err
			}
			cfg.Logger.Info("migrations applied", "dir", dir, "count", n)
			return nil
		},
	}
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <script.sql>...",
		Short: "Execute SQL scripts statement by statement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, path := range args {
				if err := s.ExecFile(ctx, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List registered dialects",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range dbfixture.Dialects() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
