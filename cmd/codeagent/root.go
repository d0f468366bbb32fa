package main

import (
	"fmt"

	"github.com/Cyclone1070/codeagent/internal/config"
	"github.com/Cyclone1070/codeagent/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "codeagent",
		Short:         "Durable code-generation agent runs",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ~/.config/codeagent/config.json)")

	cmd.AddCommand(
		newWorkerCmd(a),
		newRunCmd(a),
		newEnqueueCmd(a),
	)
	return cmd
}

// load reads configuration and builds the logger.
func (a *app) load() error {
	loader := config.NewLoader()
	if a.configPath != "" {
		loader = loader.WithPath(a.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
