package cli

import (
	"github.com/spf13/cobra"

	"github.com/lectern-dev/lectern/internal/core/ports/driven"
	"github.com/lectern-dev/lectern/internal/core/ports/driving"
	"github.com/lectern-dev/lectern/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services wired in by the composition root before Execute runs.
// Optional services may be nil; commands degrade with a clear error.
var (
	ingestService    driving.IngestService
	retrievalService driving.RetrievalService
	quizService      driving.QuizService
	docStore         driven.DocumentStore
	lexicalIndex     driven.LexicalIndex
	lexicalPath      string
	scoreThreshold   float64
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Lectern indexes lecture PDFs for hybrid retrieval and quiz generation",
	Long: `Lectern ingests PDF lecture material into a local hybrid index:
semantic chunks are embedded into a vector store and indexed for BM25
keyword search. Retrieval merges both; quizzes are generated from
retrieved passages.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// Deps carries everything the CLI needs from the composition root.
type Deps struct {
	Ingest      driving.IngestService
	Retrieval   driving.RetrievalService
	Quiz        driving.QuizService
	DocStore    driven.DocumentStore
	Lexical     driven.LexicalIndex
	LexicalPath string

	// ScoreThreshold is the configured default dense score cutoff,
	// used when the search command's flag is not set.
	ScoreThreshold float64

	Version string
}

// Configure wires services into the command tree.
func Configure(deps Deps) {
	ingestService = deps.Ingest
	retrievalService = deps.Retrieval
	quizService = deps.Quiz
	docStore = deps.DocStore
	lexicalIndex = deps.Lexical
	lexicalPath = deps.LexicalPath
	scoreThreshold = deps.ScoreThreshold
	if deps.Version != "" {
		version = deps.Version
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// saveLexical persists the BM25 index after a mutating command. A save
// failure is reported but does not fail the command; the index rebuilds
// on the next full ingest.
func saveLexical() {
	if lexicalIndex == nil || lexicalPath == "" {
		return
	}
	if err := lexicalIndex.Save(lexicalPath); err != nil {
		logger.Warn("Could not save lexical index: %v", err)
	}
}
