package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/eppla/storefront/config"
	"github.com/eppla/storefront/internal/app"
)

var (
	cfgFile  string
	cfg      *config.Config
	logger   *zerolog.Logger
	services *app.App
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront CLI - catalog ingestion and maintenance",
	Long: `A CLI tool for maintaining the EpplaGrafeiou.gr catalog: ingest the supplier
XML feed, preview a feed without installing it, clear the local catalog, check
the remote catalog store and export the catalog to a spreadsheet.`,
	PersistentPreRunE:  persistentPreRun,
	PersistentPostRunE: persistentPostRun,
	SilenceUsage:       true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

// persistentPreRun loads config and builds the services before each command
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger = initLogger(cfg.Logging)
	log.Logger = *logger

	services, err = app.New(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	return nil
}

func persistentPostRun(cmd *cobra.Command, args []string) error {
	if services != nil {
		services.Close()
	}
	return nil
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	// always console format for the CLI; stdout is kept for command output
	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: cfg.NoColor}

	l := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &l
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
