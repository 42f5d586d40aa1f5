package main

import (
	"home_dispatch/internal/catalog"
	"home_dispatch/internal/config"
	"home_dispatch/internal/logger"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "home-dispatch",
	Short: "Instruction resolution and dispatch engine for smart-home devices",
	Long: `home-dispatch turns short instructions ("turn on the living room light")
into concrete device actions and hands the rendered command to an automation agent.

Common workflows:

  Run the HTTP API, scheduler and catalog watcher:
    home-dispatch serve

  See how an instruction would resolve, without dispatching it:
    home-dispatch resolve "打开客厅灯"

  Validate the device catalog before deploying it:
    home-dispatch catalog check

Configuration:
  Settings come from configs/config.yml (or --config), a .env file and
  DISPATCH_* environment variables, e.g. DISPATCH_HTTP_PORT or DISPATCH_NLU_API_KEY.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	// serve is the default command
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yml)")
	rootCmd.AddCommand(serveCmd, resolveCmd, catalogCmd)
}

// loadConfig reads configuration and builds the process logger from it.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.GetWithFormat(cfg.Log.Level, cfg.Log.Format), nil
}

func newStore(cfg *config.Config, log *logger.Logger) *catalog.Store {
	return catalog.NewStore(cfg.Catalog.Path, cfg.Catalog.IconsDir, log.Named("catalog"))
}
