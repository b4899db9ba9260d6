package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"filesentry/internal/app"
	"filesentry/internal/config"
	"filesentry/internal/model"
	"filesentry/internal/store"
	"filesentry/internal/store/migrations"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so scans stop
// between files and are marked cancelled rather than killed mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func promptSecret() (string, error) {
	fmt.Print("Cache encryption passphrase: ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	fmt.Print("Confirm passphrase: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if string(secret) != string(confirm) {
		return "", fmt.Errorf("passphrases do not match")
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return string(secret), nil
}

var rootCmd = &cobra.Command{
	Use:   "filesentry",
	Short: "File integrity monitor",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init ROOT_DIR",
	Short: "Initialize configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		rootDir, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving root directory: %w", err)
		}

		secret, err := promptSecret()
		if err != nil {
			return err
		}

		cfg := config.NewConfig(rootDir, defaults["base_dir"])
		cfg.Encryption.Secret = secret

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Monitoring: %s\n", rootDir)
		fmt.Printf("Data Dir:   %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Root Dir:  %s\n", cfg.RootDir)
		fmt.Printf("Data Dir:  %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Retention: %dd full / %dd summary\n", cfg.Retention.Tier2Days, cfg.Retention.Tier3Days)
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a scan now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Scan")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		sr, err := a.RunScan(ctx, model.ScanManual)
		if sr != nil {
			fmt.Printf("Scan %s: %s\n", sr.ID, sr.Status)
			fmt.Printf("  scanned: %d  changed: %d  new: %d  deleted: %d  (%dms)\n",
				sr.FilesScanned, sr.FilesChanged, sr.FilesNew, sr.FilesDeleted, sr.DurationMS)
			if sr.Notes != "" {
				fmt.Printf("  notes: %s\n", sr.Notes)
			}
		}
		return err
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status SCAN_ID",
	Short: "View scan status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetScanStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		sr, err := a.GetScanStatus(args[0])
		if err != nil {
			return err
		}
		if sr == nil {
			return fmt.Errorf("scan %s not found", args[0])
		}

		baseline := ""
		if sr.IsBaseline {
			baseline = "  [baseline]"
		}
		fmt.Printf("%s  %s  %s%s\n", sr.ID, sr.StartedAt.Format("2006-01-02 15:04:05"), sr.Status, baseline)
		fmt.Printf("  type: %s  scanned: %d  changed: %d  new: %d  deleted: %d\n",
			sr.ScanType, sr.FilesScanned, sr.FilesChanged, sr.FilesNew, sr.FilesDeleted)
		if sr.Notes != "" {
			fmt.Printf("  notes: %s\n", sr.Notes)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View scan history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		scans, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(scans) == 0 {
			fmt.Println("No scans recorded.")
			return nil
		}

		for _, sr := range scans {
			duration := ""
			if sr.FinishedAt != nil {
				duration = (time.Duration(sr.DurationMS) * time.Millisecond).String()
			}
			baseline := ""
			if sr.IsBaseline {
				baseline = "  [baseline]"
			}
			fmt.Printf("%s  %s  %-9s  ~%d +%d -%d  %s%s\n",
				sr.ID,
				sr.StartedAt.Format("2006-01-02 15:04:05"),
				sr.Status,
				sr.FilesChanged,
				sr.FilesNew,
				sr.FilesDeleted,
				duration,
				baseline,
			)
		}
		return nil
	},
}

// records command
var recordsCmd = &cobra.Command{
	Use:   "records SCAN_ID",
	Short: "List a scan's file records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp("GetFileRecords")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.GetFileRecords(args[0])
		if err != nil {
			return err
		}

		shown := 0
		for _, rec := range records {
			if !all && rec.Status == model.FileUnchanged {
				continue
			}
			var indicator string
			switch rec.Status {
			case model.FileNew:
				indicator = "+"
			case model.FileChanged:
				indicator = "~"
			case model.FileDeleted:
				indicator = "-"
			default:
				indicator = " "
			}
			sensitive := ""
			if rec.IsSensitive {
				sensitive = "  [sensitive]"
			}
			priority := ""
			if rec.PriorityLevel != "" {
				priority = "  [" + rec.PriorityLevel + "]"
			}
			fmt.Printf("%s %s%s%s\n", indicator, rec.FilePath, sensitive, priority)
			shown++
		}
		if shown == 0 {
			fmt.Println("No changes recorded.")
		}
		return nil
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff SCAN_ID PATH",
	Short: "Show the recorded diff for a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetDiff")
		if err != nil {
			return err
		}
		defer a.Close()

		diff, err := a.GetDiff(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(diff)
		return nil
	},
}

// baseline command
var baselineCmd = &cobra.Command{
	Use:   "baseline SCAN_ID",
	Short: "Mark a scan as the baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MarkBaseline")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.MarkBaseline(args[0]); err != nil {
			return err
		}
		fmt.Printf("Baseline set to scan %s\n", args[0])
		return nil
	},
}

// prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Run a retention sweep now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Prune")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.Prune(ctx)
		if result != nil {
			fmt.Printf("Stripped diffs from %d scan(s), deleted %d, archived %d, removed %d cache entries\n",
				result.ScansStripped, result.ScansDeleted, result.ScansArchived, result.CacheRemoved)
		}
		return err
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the record database",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the database schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if cfg.Database.Type != "sqlite" {
			return fmt.Errorf("db status requires a sqlite database (configured: %s)", cfg.Database.Type)
		}

		dbPath := filepath.Join(cfg.Database.DataDir, "filesentry.db")
		db, err := store.OpenConnection(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.CheckStatus(db); err != nil {
			return err
		}
		fmt.Printf("Database schema at %s is up to date\n", dbPath)
		return nil
	},
}

// cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the content cache",
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CleanupCache")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.CleanupCache()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d expired cache entry(ies)\n", count)
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the tree and scan on changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		return a.Watch(ctx)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	dbCmd.AddCommand(dbStatusCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of scans to show")
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.Flags().BoolP("all", "a", false, "Include unchanged files")
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(watchCmd)
}
