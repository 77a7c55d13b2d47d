package cmd

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/revxslt/formatter"
	"github.com/gnolang/revxslt/parser"
	"github.com/gnolang/revxslt/token"
)

var (
	dumpRaw         bool
	dumpStrictXPath bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Print the token tree of a template or document",
	Long: `Print the token tree of a template or document.

Without an argument the configured template is dumped.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := templateFlag
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			config, baseDir, err := loadConfig(cfgFile, "")
			if err != nil {
				logger.Fatal("Failed to load configuration", zap.Error(err))
			}
			path = resolvePath(baseDir, config.Template)
		}

		seq, err := parseFile(path, dumpStrictXPath)
		if err != nil {
			logger.Error("Error parsing file", zap.String("file", path), zap.Error(err))
			os.Exit(1)
		}
		fmt.Print(dumpTokens(seq, dumpRaw))
	},
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpRaw, "raw", false, "Print the Go values of the tokens")
	dumpCmd.Flags().BoolVar(&dumpStrictXPath, "strict-xpath", false, "Reject invalid XPath expressions")
}

func parseFile(path string, strict bool) ([]token.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var opts []parser.Option
	if strict {
		opts = append(opts, parser.WithXPathValidation())
	}
	return parser.ParseWithCharset(f, "", opts...)
}

func dumpTokens(seq []token.Token, raw bool) string {
	if raw {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
		return cfg.Sdump(seq)
	}
	return formatter.GenerateTokenTree(seq)
}
