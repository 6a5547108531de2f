package main

import (
	"errors"
	"fmt"
	"strings"

	"resume-matcher/internal/booking"
	"resume-matcher/internal/helper"
	"resume-matcher/internal/llmservice"

	"github.com/spf13/cobra"
)

var (
	bookSchedule    string
	bookLanguage    string
	bookSource      string
	bookDestination string
	bookDate        string
)

var bookCmd = &cobra.Command{
	Use:   "book [question]",
	Short: "Ask the bus booking assistant, or look up a route directly",
	Long: `With a question, the chat llm decides whether to look up the schedule and
phrases the answer. With --source and --destination the schedule is queried
directly and the result printed as JSON.`,
	RunE: runBook,
}

func init() {
	bookCmd.Flags().StringVar(&bookSchedule, "schedule", "", "xlsx schedule (overrides booking.schedule_path)")
	bookCmd.Flags().StringVar(&bookLanguage, "language", "", "reply language: english or malayalam")
	bookCmd.Flags().StringVar(&bookSource, "source", "", "departure city")
	bookCmd.Flags().StringVar(&bookDestination, "destination", "", "arrival city")
	bookCmd.Flags().StringVar(&bookDate, "date", "", "travel date, YYYY-MM-DD")
	rootCmd.AddCommand(bookCmd)
}

func runBook(cmd *cobra.Command, args []string) error {
	if bookSchedule != "" {
		cfg.Booking.SchedulePath = bookSchedule
	}
	if bookLanguage != "" {
		cfg.Booking.Language = bookLanguage
	}
	if cfg.Booking.SchedulePath == "" {
		return errors.New("no schedule configured, set booking.schedule_path or --schedule")
	}
	schedule := booking.NewSchedule(cfg.Booking.SchedulePath)

	if bookSource != "" || bookDestination != "" {
		res, err := schedule.CheckAvailability(bookSource, bookDestination, bookDate)
		if err != nil {
			return err
		}
		helper.FprettyPrint(cmd.OutOrStdout(), res)
		return nil
	}

	if len(args) == 0 {
		return errors.New("ask a question or pass --source and --destination")
	}
	llm, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		return err
	}
	agent := booking.NewAgent(llm, cfg.ChatLLM, schedule, cfg.Booking.Language)
	reply, err := agent.Run(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}
