package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/billylighter/telegrab/internal/app"
	"github.com/billylighter/telegrab/internal/model"
)

var (
	// Global flags
	configPath string
	dataDir    string
	logFile    string
	verbose    bool

	// Export flags
	exportFormat string
	exportLimit  int
	exportMedia  bool
)

// rootCmd launches the interactive terminal UI.
var rootCmd = &cobra.Command{
	Use:   "telegrab",
	Short: "Multi-account Telegram session manager and history exporter",
	Long: `telegrab keeps one local session artifact per Telegram account,
walks the interactive sign-in flow (code and optional two-step
password), and exports conversation history to markdown or JSON
documents.

Run without arguments to start the terminal UI.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		root := app.New(*env.Config, env.Flow, env.Registry, env.Exec, env.Engine, env.Log)
		p := tea.NewProgram(root, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("failed to run UI: %w", err)
		}
		return nil
	},
}

// accountsCmd groups the headless account operations.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect and manage saved accounts",
}

// accountsListCmd prints the saved accounts.
var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved accounts",
	RunE:  runAccountsList,
}

// accountsRemoveCmd removes a saved account and all its local state.
var accountsRemoveCmd = &cobra.Command{
	Use:   "remove [account-id]",
	Short: "Remove a saved account, its session artifact, metadata and avatar",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsRemove,
}

// exportCmd exports one dialog without starting the UI.
var exportCmd = &cobra.Command{
	Use:   "export [account-id] [dialog-id]",
	Short: "Export a dialog's history to a document",
	Long: `Reconnects the given account's saved session, fetches the dialog's
history and renders it under the exports directory. Falls back to the
local history cache when the network is unavailable.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/telegrab/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the data directory")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "override the log file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	exportCmd.Flags().StringVar(&exportFormat, "format", "", "document format: markdown or json")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "cap the number of messages fetched (0 = config default)")
	exportCmd.Flags().BoolVar(&exportMedia, "media", false, "download message attachments")

	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(exportCmd)
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig() (*model.AppConfig, error) {
	path := configPath
	if path == "" {
		path = model.DefaultConfigPath()
	}
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// syncLogger flushes buffered log entries; stderr sync errors are
// expected and ignored.
func syncLogger(log *zap.Logger) {
	if log != nil {
		_ = log.Sync()
	}
}
