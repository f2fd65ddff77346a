package main

import (
	"github.com/spf13/cobra"

	"github.com/ipagrab/ipagrab/internal/app"
	"github.com/ipagrab/ipagrab/internal/infra/config"
	"github.com/ipagrab/ipagrab/internal/infra/logger"
	"github.com/ipagrab/ipagrab/internal/store"
)

var cfgPath string

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "ipagrab",
	Short:   "ipagrab downloads App Store purchases and relicenses them to the buying account",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config.yaml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(getCmd)
}

func newAppContext() (*app.Context, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, err
	}

	appCtx := app.NewContext(cfg, log)
	appCtx.Store = store.New(cfg.Store, log)

	return appCtx, nil
}
