// Package main provides the nl2sparql command line tool. It translates
// French questions into SPARQL and optionally runs them against Fuseki.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/louayabidi/web-semantique/internal/config"
	"github.com/louayabidi/web-semantique/internal/lexicon"
	"github.com/louayabidi/web-semantique/internal/ontology"
	"github.com/louayabidi/web-semantique/internal/repository"
	"github.com/louayabidi/web-semantique/internal/service"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const appName = "nl2sparql"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Translate French nutrition questions into SPARQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(translateCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

type translateOptions struct {
	mode     string
	lexicon  string
	limit    int
	execute  bool
	asJSON   bool
	logLevel string
}

func translateCmd() *cobra.Command {
	var opts translateOptions

	cmd := &cobra.Command{
		Use:   "translate <question>",
		Short: "Print the intent and SPARQL for a question",
		Example: `  nl2sparql translate "aliments riches en fibres"
  nl2sparql translate --mode lemma --execute "recettes pour diabétiques"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "", "Analyzer mode (keyword, lemma); defaults to ANALYZER_MODE")
	cmd.Flags().StringVar(&opts.lexicon, "lexicon", "", "Lexicon YAML file; defaults to LEXICON_PATH or the embedded lexicon")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Override the result limit")
	cmd.Flags().BoolVarP(&opts.execute, "execute", "x", false, "Run the query against the configured Fuseki dataset")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of text")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	return cmd
}

func runTranslate(ctx context.Context, out io.Writer, question string, opts translateOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg.Logging.Level = opts.logLevel
	cfg.Logging.Format = "text"
	logger := config.NewLogger(cfg.Logging)

	if opts.mode != "" {
		cfg.Translator.AnalyzerMode = strings.ToLower(opts.mode)
	}
	if opts.lexicon != "" {
		cfg.Translator.LexiconPath = opts.lexicon
	}

	lex, err := lexicon.Load(cfg.Translator.LexiconPath)
	if err != nil {
		return err
	}
	mapping := ontology.Default()
	analyzer, err := service.NewAnalyzer(cfg.Translator.AnalyzerMode, lex, mapping, service.Limits{
		Default: cfg.Search.DefaultLimit,
		Max:     cfg.Search.MaxLimit,
	})
	if err != nil {
		return err
	}
	scorer := service.NewScorer(cfg.Scoring.WeightName, cfg.Scoring.WeightAttribute, cfg.Scoring.WeightMedical)
	translator, err := service.NewTranslator(analyzer, service.NewBuilder(mapping, scorer, logger, nil), 0, nil)
	if err != nil {
		return err
	}

	tr := translator.Translate(question)
	if opts.limit > 0 {
		tr.Intent.Limit = min(opts.limit, cfg.Search.MaxLimit)
		tr.SPARQL = translator.Rebuild(tr.Intent)
	}

	if !opts.execute {
		return printTranslation(out, tr, opts.asJSON)
	}

	store := repository.NewFusekiRepository(&cfg.Fuseki, nil)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Fuseki.Timeout+5)*time.Second)
	defer cancel()

	result, err := store.Query(ctx, tr.SPARQL)
	if err != nil {
		return err
	}

	if opts.asJSON {
		return writeJSON(out, map[string]any{
			"intent":  tr.Intent,
			"sparql":  tr.SPARQL,
			"results": result,
		})
	}
	if err := printTranslation(out, tr, false); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d result(s)\n", len(result.Bindings))
	for _, row := range result.Bindings {
		fmt.Fprintf(out, "  - %s", row["nom"].Value)
		if score, ok := row["score"]; ok {
			fmt.Fprintf(out, " (score %s)", score.Value)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func printTranslation(out io.Writer, tr service.Translation, asJSON bool) error {
	if asJSON {
		return writeJSON(out, tr)
	}
	intent, err := json.MarshalIndent(tr.Intent, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Intent:\n%s\n\nSPARQL:\n%s\n", intent, tr.SPARQL)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
