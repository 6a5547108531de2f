package main

import (
	"fmt"
	"path/filepath"

	"resume-matcher/internal/helper"
	"resume-matcher/internal/models"
	"resume-matcher/internal/parser"

	"github.com/spf13/cobra"
)

var (
	matchFile     string
	matchAgainst  string
	matchTopK     int
	matchAnalyze  int
	matchQuestion string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank indexed documents against one resume or job description",
	Long: `Ranks indexed job descriptions for a resume (--against jobs) or indexed
resumes for a job description (--against resumes).`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchFile, "file", "", "document to match")
	matchCmd.Flags().StringVar(&matchAgainst, "against", "jobs", "index to search: jobs or resumes")
	matchCmd.Flags().IntVarP(&matchTopK, "top-k", "k", 0, "number of results (0 uses the configured default)")
	matchCmd.Flags().IntVar(&matchAnalyze, "analyze", 0, "summarise the top N job matches with the chat llm")
	matchCmd.Flags().StringVarP(&matchQuestion, "question", "q", "", "answer a question about the matches with the chat llm")
	_ = matchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	kind, err := parseKind(matchAgainst)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	raw, err := parser.ExtractText(matchFile)
	if err != nil {
		return err
	}
	doc := models.Document{ID: "query", Filename: filepath.Base(matchFile), RawText: raw}

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

	var results []models.MatchResult
	if kind == models.KindJob {
		results, err = p.MatchProfile(ctx, doc, matchTopK)
	} else {
		results, err = p.Match(ctx, raw, matchTopK)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	helper.FprettyPrint(out, results)

	if matchAnalyze <= 0 && matchQuestion == "" {
		return nil
	}
	chat, err := a.chat()
	if err != nil {
		return err
	}
	if matchAnalyze > 0 {
		helper.FprettyPrint(out, chat.AnalyzeTop(ctx, results, matchAnalyze))
	}
	if matchQuestion != "" {
		answer, err := chat.Query(ctx, matchQuestion, results)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, answer)
	}
	return nil
}
