package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/revxslt/extract"
	"github.com/gnolang/revxslt/formatter"
	"github.com/gnolang/revxslt/internal/store"
	tt "github.com/gnolang/revxslt/internal/types"
)

var (
	ignorePaths     string
	matchJsonOutput bool
	outPath         string
	storeDSN        string
	contentType     string
)

var matchCmd = &cobra.Command{
	Use:   "match [paths or urls...]",
	Short: "Extract bindings from documents produced by the template",
	Long: `Match every document against the template and print what was bound.

Directories are walked for .html, .htm, .xhtml and .xml files. A single "-"
reads one document from standard input. The exit status is 1 when any
document does not match.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		config, baseDir, err := loadConfig(cfgFile, templateFlag)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		engine, err := newEngine(config, baseDir)
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}

		if ignorePaths != "" {
			for _, path := range strings.Split(ignorePaths, ",") {
				engine.IgnorePath(strings.TrimSpace(path))
			}
		}

		records, err := runMatch(ctx, engine, args, os.Stdin)
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}

		dsn := storeDSN
		if dsn == "" {
			dsn = config.Store
		}
		if dsn != "" {
			if err := saveRecords(ctx, dsn, records); err != nil {
				logger.Error("Error saving records", zap.Error(err))
				os.Exit(1)
			}
		}

		if err := printRecords(os.Stdout, records, matchJsonOutput, outPath); err != nil {
			logger.Error("Error writing records", zap.Error(err))
			os.Exit(1)
		}
		if !matchJsonOutput {
			fmt.Fprintln(os.Stderr, formatter.GenerateSummary(records))
		}

		if !allMatched(records) {
			os.Exit(1)
		}
	},
}

func init() {
	matchCmd.Flags().StringVar(&ignorePaths, "ignore-paths", "", "Comma-separated list of paths to ignore")
	matchCmd.Flags().BoolVar(&matchJsonOutput, "json", false, "Output records in JSON format")
	matchCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	matchCmd.Flags().StringVar(&storeDSN, "store", "", "Save records to a SQLite path or redis:// URL")
	matchCmd.Flags().StringVar(&contentType, "content-type", "", "Content type of the document read from standard input")
}

func runMatch(ctx context.Context, engine extract.ExtractEngine, args []string, stdin io.Reader) ([]tt.Record, error) {
	if len(args) == 1 && args[0] == "-" {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("error reading standard input: %w", err)
		}
		return extract.ProcessSources(ctx, engine, []extract.Source{
			{Name: "-", Content: content, ContentType: contentType},
		})
	}
	return extract.ProcessFiles(ctx, logger, engine, args, extract.ProcessFile)
}

func saveRecords(ctx context.Context, dsn string, records []tt.Record) error {
	s, err := store.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, r := range records {
		if err := s.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func printRecords(w io.Writer, records []tt.Record, isJson bool, jsonOutput string) error {
	if !isJson {
		_, err := fmt.Fprint(w, formatter.GenerateFormattedRecords(records))
		return err
	}

	d, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling records to JSON: %w", err)
	}
	if jsonOutput == "" {
		_, err = fmt.Fprintln(w, string(d))
		return err
	}
	return os.WriteFile(jsonOutput, d, 0o644)
}

func allMatched(records []tt.Record) bool {
	for _, r := range records {
		if !r.Matched() {
			return false
		}
	}
	return true
}
