package main

import (
	"os"

	"resume-matcher/internal/config"
	"resume-matcher/internal/helper"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName        = "resume-matcher"
	configFilePath = "./configs/config.yaml"
)

var (
	cfgFile    string
	debug      bool
	jsonOutput bool

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "Match resumes and job descriptions by semantic similarity",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			if debug {
				cfg.Log.Level = "debug"
			}
			if jsonOutput {
				cfg.Log.JSON = true
			}
			helper.SetupLogger(cfg.Log.Level, cfg.Log.JSON)
			log.Debug().Interface("config", cfg.Redacted()).Msg("Loaded config")
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", configFilePath, "path to the yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "json format for logging")
}

func main() {
	helper.SetupLogger("info", false)
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
