package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filechk/internal/app"
	"filechk/internal/catalog"
	"filechk/internal/config"
	"filechk/internal/export"
	"filechk/internal/opener"
	"filechk/internal/view"
)

var globalOpts app.Options
var configPath string
var recurseFlag, noRescanFlag bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if app.IsFatal(err) {
			fmt.Fprintln(os.Stderr, "The catalog could not be opened. Check the path and permissions, or restore a snapshot.")
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it is missing.
func loadConfig() (*config.Config, string, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, "", fmt.Errorf("resolving default paths: %w", err)
	}
	path := configPath
	if path == "" {
		path = paths.ConfigPath
	}
	cfg, err := config.ReadFromFileOrDefault(path, paths.BaseDir)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, path, nil
}

// newApp reads the config and creates a FileChkApp. The caller must defer a.Close().
func newApp(command string) (*app.FileChkApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewFileChkApp(cfg, command, cliOptions())
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// cliOptions returns globalOpts with the boolean overrides set only for
// flags given on the command line, so --recurse=false can turn off a
// config setting.
func cliOptions() app.Options {
	opts := globalOpts
	pf := rootCmd.PersistentFlags()
	if pf.Changed("recurse") {
		opts.Recurse = &recurseFlag
	}
	if pf.Changed("no-rescan") {
		opts.NoRescan = &noRescanFlag
	}
	return opts
}

// startApp creates the app and runs startup ingestion.
func startApp(command string) (*app.FileChkApp, error) {
	a, err := newApp(command)
	if err != nil {
		return nil, err
	}
	res, err := a.Startup()
	if err != nil {
		a.Close()
		return nil, err
	}
	if res != nil && res.Added > 0 {
		fmt.Fprintf(os.Stderr, "Cataloged %s new file(s)\n", humanize.Comma(int64(res.Added)))
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "filechk",
	Short:        "Catalog files and keep notes on them",
	SilenceUsage: true,
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the root for new or modified files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("scan")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Scan()
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Printf("Seen %s, added %s, skipped %s in %s\n",
			humanize.Comma(int64(res.Seen)),
			humanize.Comma(int64(res.Added)),
			humanize.Comma(int64(res.Skipped)),
			res.Duration.Truncate(time.Millisecond),
		)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged files",
	RunE: func(cmd *cobra.Command, args []string) error {
		sortFlag, _ := cmd.Flags().GetString("sort")
		desc, _ := cmd.Flags().GetBool("desc")

		sortKey, err := catalog.ParseSortKey(sortFlag)
		if err != nil {
			return err
		}

		a, err := startApp("list")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Service().List(sortKey, desc)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No files cataloged.")
			return nil
		}

		interactive, width := stdoutIsTerminal()
		pathWidth := 0
		if width > 0 {
			// id, status, modified, size and padding take about 50 columns.
			pathWidth = max(width-50, 20)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, row := range view.Project(entries) {
			status := row.StatusLabel
			if interactive {
				status = row.Glyph
			}
			path := row.Path
			if pathWidth > 0 {
				path = truncateLeft(path, pathWidth)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				row.ID, status, path, row.Modified, row.Size, firstLine(row.Notes))
		}
		return tw.Flush()
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one cataloged file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := startApp("show")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Service().Get(id)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("no entry with id %d", id)
		}

		row := view.ProjectEntry(entry)
		fmt.Printf("ID:       %d\n", row.ID)
		fmt.Printf("Path:     %s\n", row.Path)
		fmt.Printf("Name:     %s\n", row.Name)
		fmt.Printf("Modified: %s\n", row.Modified)
		fmt.Printf("Size:     %s\n", row.Size)
		fmt.Printf("Status:   %s %s\n", row.Glyph, row.StatusLabel)
		if row.Notes != "" {
			fmt.Printf("Notes:\n%s\n", row.Notes)
		}
		return nil
	},
}

// open command
var openCmd = &cobra.Command{
	Use:   "open ID",
	Short: "Open a cataloged file with its default application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := startApp("open")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Service().Get(id)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("no entry with id %d", id)
		}
		return opener.Open(entry.Path)
	},
}

// toggle, check and uncheck commands
var toggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Flip the checked state of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := startApp("toggle")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Service().ToggleStatus(id)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("no entry with id %d", id)
		}
		fmt.Printf("%s %s\n", entry.Status.Glyph(), entry.Path)
		return nil
	},
}

func setStatusCmd(use string, status catalog.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: fmt.Sprintf("Mark a file as %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := startApp(use)
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.Service().Get(id)
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("no entry with id %d", id)
			}
			if err := a.Service().SetStatus(id, status); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", status.Glyph(), entry.Path)
			return nil
		},
	}
}

// note command
var noteCmd = &cobra.Command{
	Use:   "note ID [TEXT...]",
	Short: "Set or clear the notes of a file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clearNotes, _ := cmd.Flags().GetBool("clear")

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		if clearNotes && text != "" {
			return fmt.Errorf("--clear cannot be combined with note text")
		}
		if !clearNotes && text == "" {
			return fmt.Errorf("note text required (use --clear to remove notes)")
		}

		a, err := startApp("note")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Service().Get(id)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("no entry with id %d", id)
		}
		if err := a.Service().SetNotes(id, text); err != nil {
			return err
		}

		if clearNotes {
			fmt.Printf("Cleared notes on %s\n", entry.Path)
		} else {
			fmt.Printf("Noted %s\n", entry.Path)
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export files that have notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		a, err := startApp("export")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Export(format, out, encrypt, os.Stdout)
		if errors.Is(err, export.ErrNothingToExport) {
			fmt.Println("Nothing to export.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		if out != "" {
			fmt.Printf("Exported %s file(s) to %s\n", humanize.Comma(int64(n)), out)
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

		a, err := newApp("history")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.OpenExisting(); err != nil {
			return err
		}

		runs, err := a.Service().History(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No scans recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, run := range runs {
			duration := ""
			if run.Finished() {
				duration = run.Duration().Truncate(time.Millisecond).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\tseen %s\tadded %s\tskipped %s\t%s\n",
				run.StartedAt.Local().Format(view.TimeLayout),
				humanize.Time(run.StartedAt),
				run.Status,
				duration,
				humanize.Comma(int64(run.Seen)),
				humanize.Comma(int64(run.Added)),
				humanize.Comma(int64(run.Skipped)),
				run.Root,
			)
		}
		return tw.Flush()
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the catalog to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		a, err := newApp("backup")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Backup(encrypt)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Printf("Stored snapshot %s (%s)\n", snap.Name, humanize.Bytes(uint64(snap.Size)))
		return nil
	},
}

// snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List catalog snapshots in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("snapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		snaps, err := a.Snapshots()
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, s := range snaps {
			enc := ""
			if s.Encrypted() {
				enc = "encrypted"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, humanize.Bytes(uint64(s.Size)), humanize.Time(s.CreatedAt), enc)
		}
		return tw.Flush()
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Replace the catalog with a snapshot from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp("restore")
		if err != nil {
			return err
		}
		defer a.Close()

		prompt := func() (string, error) { return readPassphrase("Passphrase: ") }
		if err := a.Restore(args[0], force, prompt); err != nil {
			if errors.Is(err, catalog.ErrCatalogExists) {
				return fmt.Errorf("%w (use --force to replace it)", err)
			}
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restored %s to %s\n", args[0], a.CatalogPath())
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("resolving default paths: %w", err)
		}
		path := configPath
		if path == "" {
			path = paths.ConfigPath
		}

		cfg := config.NewConfig(paths.BaseDir)
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Base Dir: %s\n", paths.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Root:       %s\n", cfg.Catalog.Root)
		fmt.Printf("Recurse:    %t\n", cfg.Catalog.Recurse)
		fmt.Printf("Extensions: %s\n", strings.Join(cfg.Catalog.Extensions, ", "))
		fmt.Printf("No Rescan:  %t\n", cfg.Catalog.NoRescan)
		fmt.Printf("Catalog:    %s (%s)\n", cfg.Catalog.Type, cfg.Catalog.FileName)
		fmt.Printf("Export:     %s\n", cfg.Export.Format)
		fmt.Printf("Vault:      %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vault",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("vault-check")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(); err != nil {
			return err
		}
		fmt.Println("Vault OK.")
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("keys-init")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := newPassphrase()
		if err != nil {
			return err
		}
		if err := a.SetupKeys(pass); err != nil {
			return err
		}
		fmt.Println("Encryption keys created.")
		return nil
	},
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default $FILECHK_CONFIG_PATH or ~/.config/filechk.toml)")
	pf.StringVarP(&globalOpts.Root, "path", "p", "", "Root directory to catalog")
	pf.BoolVarP(&recurseFlag, "recurse", "r", false, "Recurse into subdirectories (--recurse=false overrides config)")
	pf.StringArrayVarP(&globalOpts.Extensions, "ext", "e", nil, "Only catalog files with this extension (repeatable)")
	pf.BoolVar(&noRescanFlag, "no-rescan", false, "Skip scanning when the catalog already exists (--no-rescan=false overrides config)")
	pf.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "Log everything to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("sort", "s", "", "Sort by path, name, modified, size, status or notes")
	listCmd.Flags().BoolP("desc", "d", false, "Sort descending")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(setStatusCmd("check", catalog.StatusChecked))
	rootCmd.AddCommand(setStatusCmd("uncheck", catalog.StatusUnchecked))
	rootCmd.AddCommand(noteCmd)
	noteCmd.Flags().Bool("clear", false, "Remove the notes")
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "", "Export format: csv, json or markdown (default from config)")
	exportCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().Bool("encrypt", false, "Encrypt the output with the configured age key")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of scans to show")
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().Bool("encrypt", false, "Encrypt the snapshot with the configured age key")
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().Bool("force", false, "Replace an existing catalog")
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
}
