package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pagewidgets/pagewidgets-server/internal/client"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
	"github.com/pagewidgets/pagewidgets-server/internal/markers"
)

var (
	flagConfig string

	cfg settings
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "widgetctl",
	Short:         "Create and run Notion widgets from the terminal",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		dir := defaultConfigDir()
		if flagConfig != "" {
			dir = filepath.Dir(flagConfig)
		}
		s, err := loadSettings(cmd.Flags(), flagConfig, dir)
		if err != nil {
			return err
		}
		cfg = s
		log = logger.New(logger.Config{
			Writer: os.Stderr,
			Level:  logger.ParseLevel(s.LogLevel),
		}).Logger
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: <user config dir>/widgetctl/config.yaml)")
	pf.String(cfgKeyServer, client.DefaultBaseURL, "widget server base URL")
	pf.String(cfgKeyMarkers, markers.DriverSQLite, "marker store driver: memory, sqlite or badger")
	pf.String(cfgKeyMarkersPath, "", "marker store path (default: <config dir>/markers.db)")
	pf.String(cfgKeyLogLevel, "warn", "log level")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(todoCmd)
	rootCmd.AddCommand(searchCmd)
}

func newClient() *client.Client {
	return client.New(cfg.Server, log)
}
