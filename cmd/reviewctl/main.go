// cmd/reviewctl/main.go

// Command reviewctl runs the product save rules offline and manages the
// verdict-cms server.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javajoker/verdict-cms/internal/rules"
)

var (
	tablesPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "reviewctl",
	Short:         "Check products against the publication rules and run the CMS",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		logrus.SetLevel(level)
		logrus.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tablesPath, "tables", os.Getenv("RULES_TABLES_PATH"), "YAML rule tables (default: built-in)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadTables() (*rules.Tables, error) {
	return rules.LoadTables(tablesPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
