package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/concord/internal/agents"
	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/documents"
	"github.com/JaimeStill/concord/internal/infrastructure"
	"github.com/JaimeStill/concord/internal/prompts"
	"github.com/JaimeStill/concord/workflow"
)

var classifyFlags struct {
	offline           bool
	forceDisagreement bool
	maxRounds         int
	minConfidence     float64
	concurrency       int
	output            string
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Classify local documents and print the decisions as JSON",
	Long: `Classify extracts the text of each file (.txt, .md, .pdf, .docx, or
UTF-8 text of any other type) and runs the consensus workflow on it.

Agent providers come from config.toml and CONCORD_* environment variables.
--offline replaces every agent with the built-in heuristic, which needs no
credentials. Documents without text are skipped with a warning.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	f := classifyCmd.Flags()
	f.BoolVar(&classifyFlags.offline, "offline", false, "Use the built-in heuristic agents instead of model providers")
	f.BoolVar(&classifyFlags.forceDisagreement, "force-disagreement", false, "Make the offline evaluators disagree in round 1")
	f.IntVar(&classifyFlags.maxRounds, "max-rounds", 0, "Maximum evaluation rounds (default from config)")
	f.Float64Var(&classifyFlags.minConfidence, "min-confidence", 0, "Consensus confidence threshold (default from config)")
	f.IntVar(&classifyFlags.concurrency, "concurrency", 0, "Documents classified in parallel (default from config)")
	f.StringVarP(&classifyFlags.output, "output", "o", "", "Write the JSON array to this file instead of stdout")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadLocal(classifyFlags.offline)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg.Consensus)

	logger := infrastructure.NewLogger(&cfg.Logging, cmd.ErrOrStderr())

	caps, err := agents.New(&cfg.Agents, prompts.Defaults, agents.Options{
		ForceDisagreement: classifyFlags.forceDisagreement,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	wf, err := workflow.New(cfg.Consensus.RunConfig(), caps, workflow.WithLogger(logger))
	if err != nil {
		return err
	}

	docs, err := readDocuments(args)
	if err != nil {
		return err
	}

	results := workflow.ClassifyBatch(cmd.Context(), wf, docs, cfg.Consensus.Concurrency)

	var failed int
	for _, r := range results {
		switch {
		case errors.Is(r.Err, workflow.ErrEmptyDocument):
			logger.Warn("skipping empty document", "document", r.DocumentName)
		case r.Err != nil:
			failed++
			logger.Error("classification failed", "document", r.DocumentName, "error", r.Err)
		}
	}

	if err := writeDecisions(cmd.OutOrStdout(), classifyFlags.output, workflow.Decisions(results)); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

// applyFlags overrides consensus settings with the flags the user set.
func applyFlags(cmd *cobra.Command, c *config.ConsensusConfig) {
	f := cmd.Flags()
	if f.Changed("max-rounds") {
		c.MaxRounds = classifyFlags.maxRounds
	}
	if f.Changed("min-confidence") {
		c.MinConfidence = classifyFlags.minConfidence
	}
	if f.Changed("concurrency") {
		c.Concurrency = classifyFlags.concurrency
	}
}

// readDocuments extracts the text of each path. Documents are numbered
// doc-1, doc-2, ... in argument order.
func readDocuments(paths []string) ([]workflow.Document, error) {
	docs := make([]workflow.Document, 0, len(paths))

	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}

		name := filepath.Base(p)
		text, err := documents.Extract(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}

		docs = append(docs, workflow.Document{
			ID:   fmt.Sprintf("doc-%d", i+1),
			Name: name,
			Text: text,
		})
	}

	return docs, nil
}

func writeDecisions(stdout io.Writer, path string, decisions []workflow.Decision) error {
	if decisions == nil {
		decisions = []workflow.Decision{}
	}

	data, err := json.MarshalIndent(decisions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
