package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "diabetes-risk",
	Short: "Type 2 diabetes risk assessment",
	Long:  "Scores a health profile for type 2 diabetes risk, records assessments to a history store, and serves sessions over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return cfg.Validate(commandGroup(cmd))
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// commandGroup returns the name of the top-level subcommand cmd belongs to.
func commandGroup(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent() != cmd.Root() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
