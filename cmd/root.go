package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the emailzen application
var rootCmd = &cobra.Command{
	Use:   "emailzen",
	Short: "Organizes your Gmail inbox with sender and subject rules",
	Long: `emailzen files unread Gmail messages according to user-defined rules:
labeling, marking read, archiving and time-based cleanup of labeled mail.

It can run as:
  - A standalone CLI tool (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

var (
	debugMode bool
	dataDir   string
)

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "emailzen version %s\n" .Version}}`)

	// If no subcommand is provided, run the process command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "process")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for rules, tokens and caches (default: user config dir)")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
