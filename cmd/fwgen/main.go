package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/mmrzaf/fwgen/internal/app"
	"github.com/mmrzaf/fwgen/internal/config"
	"github.com/mmrzaf/fwgen/internal/infra/repos/rules"
	"github.com/mmrzaf/fwgen/internal/infra/repos/runs"
	"github.com/mmrzaf/fwgen/internal/logging"
	"github.com/mmrzaf/fwgen/internal/profile"
	"github.com/mmrzaf/fwgen/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	outputDir   string
	rulesDir    string
	runsDBPath  string
	postgresDSN string
	logLevel    string
)

func main() {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "fwgen",
		Short: "Fixed-width data profiler and synthetic record generator",
	}

	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", cfg.OutputDir, "Output directory")
	rootCmd.PersistentFlags().StringVar(&rulesDir, "rules-dir", cfg.RulesDir, "Rules directory")
	rootCmd.PersistentFlags().StringVar(&runsDBPath, "runs-db", cfg.RunsDBPath, "Runs database path")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", cfg.PostgresDSN, "Postgres DSN for run history (overrides --runs-db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level")

	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openRunRepo() (runs.Repository, error) {
	var repo runs.Repository
	if postgresDSN != "" {
		repo = runs.NewPostgresRepository(postgresDSN)
	} else {
		if dir := filepath.Dir(runsDBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create runs db directory: %w", err)
			}
		}
		repo = runs.NewSQLiteRepository(runsDBPath)
	}
	if err := repo.Init(); err != nil {
		return nil, err
	}
	return repo, nil
}

func widthPolicy(name string) (profile.WidthPolicy, error) {
	switch name {
	case "", "lenient":
		return profile.WidthLenient, nil
	case "skip":
		return profile.WidthSkip, nil
	case "strict":
		return profile.WidthStrict, nil
	default:
		return profile.WidthLenient, fmt.Errorf("unknown width policy: %s", name)
	}
}

func profileCmd() *cobra.Command {
	var (
		layoutPath string
		dataPath   string
		outPath    string
		policyName string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile a fixed-width data file against a CSV layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger(logLevel)

			policy, err := widthPolicy(policyName)
			if err != nil {
				return err
			}

			repo, err := openRunRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			if outPath == "" {
				base := filepath.Base(dataPath)
				outPath = filepath.Join(outputDir, base+".profile.json")
			}

			service := app.NewRunService(repo, logger, profile.Options{WidthPolicy: policy})
			run, profiles, err := service.Profile(layoutPath, dataPath, outPath)
			if err != nil {
				return err
			}

			fmt.Printf("Profiled %d columns into %s (run %s)\n", len(profiles), outPath, run.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&layoutPath, "layout", "", "Layout CSV path")
	cmd.Flags().StringVar(&dataPath, "data", "", "Fixed-width data file path")
	cmd.Flags().StringVar(&outPath, "out", "", "Profile output path (default <output-dir>/<data>.profile.json)")
	cmd.Flags().StringVar(&policyName, "width-policy", "lenient", "Record width policy (lenient|skip|strict)")
	cmd.MarkFlagRequired("layout")
	cmd.MarkFlagRequired("data")

	return cmd
}

func generateCmd() *cobra.Command {
	var (
		rulesPath string
		outPath   string
		records   int
		seed      int64
		hasSeed   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic fixed-width records from a rules document",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger(logLevel)

			repo, err := openRunRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			if outPath == "" {
				base := filepath.Base(rulesPath)
				ext := filepath.Ext(base)
				outPath = filepath.Join(outputDir, base[:len(base)-len(ext)]+".dat")
			}

			var seedOverride *int64
			if hasSeed {
				seedOverride = &seed
			}

			service := app.NewRunService(repo, logger, profile.Options{})
			run, err := service.Generate(rulesPath, outPath, records, seedOverride)
			if err != nil {
				return err
			}

			fmt.Printf("Generated %s (run %s, seed %d)\n", outPath, run.ID, run.Seed)
			return nil
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rules document path")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default <output-dir>/<rules>.dat)")
	cmd.Flags().IntVar(&records, "records", 0, "Record count (default from rules document)")
	cmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Seed for RNG (overrides rules document)")
	cmd.MarkFlagRequired("rules")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		hasSeed = cmd.Flags().Changed("seed")
	}

	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage rules documents",
	}

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate and heal a rules document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger(logLevel)

			doc, err := rules.Load(args[0])
			if err != nil {
				return err
			}

			validator := validation.NewValidator(logger)
			cleaned, err := validator.ValidateAndClean(doc)
			if err != nil {
				fmt.Printf("Validation failed: %v\n", err)
				return err
			}

			fmt.Printf("Rules document '%s' is valid (%d fields)\n", args[0], len(cleaned.Fields))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rules documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := rules.List(rulesDir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	cmd.AddCommand(validateCmd, listCmd)
	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run history",
	}

	var (
		limit  int
		status string
		format string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRunRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			list, err := repo.List(limit, status)
			if err != nil {
				return err
			}

			if format == "json" {
				data, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tOUTPUT\tSTATUS\tSTARTED")
			for _, r := range list {
				id := r.ID
				if len(id) > 8 {
					id = id[:8]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					id, r.Kind, r.OutputFile, r.Status, r.StartedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Limit results")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRunRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			run, err := repo.Get(args[0])
			if err != nil {
				return err
			}

			data, _ := yaml.Marshal(run)
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
