package main

import (
	"github.com/OFFIS-RIT/kgchat/internal/util"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
	"github.com/OFFIS-RIT/kgchat/pkg/logger/console"

	"github.com/spf13/cobra"
)

var (
	debug bool
	opts  extractOptions

	rootCmd = &cobra.Command{
		Use:   "csvgen",
		Short: "Generate knowledge graph CSV files from documents",
		Long: `csvgen reads text, markdown, PDF, DOCX files or web pages, asks the
configured language model for the relationships they describe and writes
them as Source,Target,Relation rows that the chat server can load.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger()
		},
	}

	extractCmd = &cobra.Command{
		Use:   "extract",
		Short: "Extract relationship triples from one or more documents",
		Example: `  csvgen extract --file notes.md --output physics.csv
  csvgen extract --file paper.pdf --file https://example.org/article --parallel 4`,
		Args: cobra.NoArgs,
		RunE: runExtractCommand,
	}
)

func initLogger() {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug || util.GetEnvBool("DEBUG", false),
		Prefix: "csvgen",
		Format: console.ParseFormat(util.GetEnv("LOG_FORMAT")),
	}))
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	extractCmd.Flags().StringSliceVarP(&opts.files, "file", "f", nil, "Input file path or http(s) URL (repeatable)")
	extractCmd.Flags().StringVarP(&opts.output, "output", "o", "knowledge_graph.csv", "Output CSV file")
	extractCmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 500, "Maximum tokens per text unit sent to the model")
	extractCmd.Flags().IntVar(&opts.parallel, "parallel", 0, "Concurrent model requests (default AI_PARALLEL_REQ or 4)")
	_ = extractCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(extractCmd)
}
