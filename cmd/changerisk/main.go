package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rohankatakam/changerisk/internal/config"
	apperrors "github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     config.Config
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitSource  = 3
)

func main() {
	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		reportError(os.Stderr, err, verbose)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status. Bad flags or
// config exit with usage, an unreachable history source with its own code,
// everything else with a plain failure.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch apperrors.GetType(err) {
	case apperrors.ErrorTypeConfig, apperrors.ErrorTypeValidation:
		return exitUsage
	case apperrors.ErrorTypeSource:
		if apperrors.IsFatal(err) {
			return exitSource
		}
	}
	return exitFailure
}

func reportError(w io.Writer, err error, detailed bool) {
	var e *apperrors.Error
	if detailed && errors.As(err, &e) {
		fmt.Fprint(w, e.DetailedString())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

var rootCmd = &cobra.Command{
	Use:   "changerisk",
	Short: "ChangeRisk - bus factor and hotspot analysis from commit history",
	Long: `ChangeRisk mines a repository's commit history for knowledge
concentration: files only one developer understands, files that change
often, and developers whose departure would leave code unowned.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		return initLogging(cfg.Logging)
	},
}

// initLogging configures logrus for the CLI and slog for the core packages
func initLogging(lc config.LoggingConfig) error {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if lc.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logCfg := logging.DefaultConfig(level >= logrus.DebugLevel)
	logCfg.Level = logging.ParseLevel(lc.Level)
	logCfg.JSONFormat = lc.JSON
	if lc.Directory != "" {
		logCfg = logging.FileConfig(lc.Directory, logCfg.Level)
	}
	return logging.Initialize(logCfg)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .changerisk/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`ChangeRisk {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(versionCmd)
}
