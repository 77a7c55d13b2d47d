package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gnolang/revxslt/extract"
	"github.com/gnolang/revxslt/internal"
	"github.com/gnolang/revxslt/internal/fetch"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile      string
	templateFlag string
	timeout      time.Duration
	verbose      bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:              "revxslt [paths...]",
	Short:            "revxslt - recover the data an XSLT template was filled with",
	SilenceUsage:     true,
	TraverseChildren: true, // Prioritize subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		// revxslt [path1 path2 ...] behaves like the match subcommand
		matchCmd.Run(matchCmd, args)
	},
}

func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", extract.DefaultConfigPath, "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&templateFlag, "template", "t", "", "Template to match against, overriding the configuration")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Overall time limit")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log search details")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = !verbose
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// loadConfig reads the configuration file, falling back to defaults without
// a cache when the file is missing and a template is given on the command
// line.
func loadConfig(configPath, template string) (extract.Config, string, error) {
	config, err := extract.ParseConfigurationFile(configPath)
	switch {
	case err == nil:
	case os.IsNotExist(err) && template != "":
		config = extract.Config{Name: "revxslt"}
	default:
		return extract.Config{}, "", fmt.Errorf("error loading configuration: %w", err)
	}

	baseDir := filepath.Dir(configPath)
	if template != "" {
		abs, err := filepath.Abs(template)
		if err != nil {
			return extract.Config{}, "", err
		}
		config.Template = abs
	}
	return config, baseDir, nil
}

func newEngine(config extract.Config, baseDir string, opts ...internal.EngineOption) (*internal.Engine, error) {
	var dependencies []string
	if _, err := os.Stat(cfgFile); err == nil {
		dependencies = append(dependencies, cfgFile)
	}
	opts = append([]internal.EngineOption{
		internal.WithFetcher(fetch.New(fetch.WithTimeout(timeout))),
	}, opts...)
	return extract.New(config, baseDir, logger, dependencies, opts...)
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// splitSources separates remote documents from local paths.
func splitSources(args []string) (urls, paths []string) {
	for _, arg := range args {
		if fetch.IsURL(arg) {
			urls = append(urls, arg)
		} else {
			paths = append(paths, arg)
		}
	}
	return urls, paths
}
