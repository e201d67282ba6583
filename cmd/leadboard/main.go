package main

import (
	"fmt"
	"os"

	"github.com/fentz26/leadboard/internal/api"
	"github.com/fentz26/leadboard/internal/config"
	"github.com/fentz26/leadboard/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "leadboard",
	Short: "Leadboard - lead pipeline board for mould remediation",
	Long: `Leadboard tracks mould remediation leads through the sales pipeline.
Run "leadboard daemon" for the lead store API and "leadboard board" for the kanban board.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("api") {
			cfg.Client.API = apiAddr
		}
		apiAddr = cfg.Client.API

		// The board logs to a file once it owns the screen.
		if cmd.Name() == boardCmd.Name() {
			log = zap.NewNop()
			return nil
		}
		log, err = logger.New(cfg.Log.Level, cfg.Log.Format, "leadboard")
		return err
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the leadboard version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("leadboard %s\n", api.Version)
	},
}

var (
	apiAddr    string
	configPath string

	cfg *config.Config
	log = zap.NewNop()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7466", "API server address")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(leadCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.Execute()
	_ = log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
