package main

import (
	"fmt"

	"resume-matcher/internal/helper"
	"resume-matcher/internal/models"
	"resume-matcher/internal/parser"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	buildDir    string
	buildAppend bool
)

var buildCmd = &cobra.Command{
	Use:       "build resumes|jobs",
	Short:     "Extract, chunk, embed and index a folder of documents",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"resumes", "jobs"},
	RunE:      runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildDir, "dir", "", "folder of pdf, docx, pptx, xlsx, md or txt files")
	buildCmd.Flags().BoolVar(&buildAppend, "append", false, "add to the existing index instead of rebuilding it")
	_ = buildCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	docs, err := parser.LoadFolder(buildDir, kind)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(ctx, kind)
	if err != nil {
		return err
	}
	defer p.Close()

	if !buildAppend {
		if err := p.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset index: %w", err)
		}
	}

	ingest := p.IngestResumes
	if kind == models.KindJob {
		ingest = p.IngestJobs
	}
	report, err := ingest(ctx, docs)
	if err != nil {
		return err
	}
	if err := p.Persist(ctx); err != nil {
		return err
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("indexed", report.Indexed).
		Int("chunks", report.Chunks).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Build finished")
	helper.FprettyPrint(cmd.OutOrStdout(), report)
	return nil
}
