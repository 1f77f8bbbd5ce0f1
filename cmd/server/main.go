package main

import (
	"fmt"
	"os"

	"ezeatin-backend/internal/config"
	"ezeatin-backend/internal/logging"
	"ezeatin-backend/internal/onboarding"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ezeatin",
		Short:        "EZ Eatin' onboarding backend",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	root.AddCommand(newServeCmd(), newCatalogCmd(), newOutboxCmd())
	return root
}

// setup loads configuration and builds the logger shared by every command.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func loadCatalog(path string) (*onboarding.StaticCatalog, error) {
	if path == "" {
		return onboarding.DefaultCatalog(), nil
	}
	return onboarding.LoadCatalogFile(path)
}
