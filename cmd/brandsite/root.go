package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nikitaxru/brandsite"
	"github.com/nikitaxru/brandsite/internal/config"
	"github.com/nikitaxru/brandsite/internal/logger"
)

var (
	cfgFile  string
	logLevel string

	appConfig *config.Config
	appLog    *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "brandsite",
	Short: "Static employer branding page generator",
	Long: `brandsite assembles one HTML page per project and style from a layout
table, a JSON content document and HTML component fragments with
{{placeholder}} tokens and BEGIN_LIST_ITEM/END_LIST_ITEM blocks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLog != nil {
			_ = appLog.Sync()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./brandsite.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func initialize() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logFile := cfg.Log.File
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(cfg.Paths.OutputDir, logFile)
	}
	l, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: logFile})
	if err != nil {
		return err
	}
	appConfig, appLog = cfg, l
	return nil
}

func newRunner() *brandsite.Runner {
	return brandsite.NewRunner(appConfig.Options(), appLog.Logger)
}

// report prints the outcome of a build run and decides the exit status.
func report(sum *brandsite.Summary, err error) error {
	if sum != nil {
		for _, o := range sum.Outputs {
			fmt.Printf("wrote %s", o.Path)
			if n := len(o.Unresolved); n > 0 {
				fmt.Printf(" (%d unresolved placeholder(s))", n)
			}
			fmt.Println()
		}
		for key, ferr := range sum.Failed {
			appLog.Warn("skipped", zap.String("unit", key), zap.Error(ferr))
		}
	}
	if errors.Is(err, brandsite.ErrNoOutput) {
		appLog.Error("no page generated", zap.Int("failed", len(sum.Failed)))
	}
	return err
}
