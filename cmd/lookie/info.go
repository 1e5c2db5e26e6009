package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/lookie/backend/internal/analysis/intent"
	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/model/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the stylist personas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, p := range persona.Seed() {
			fmt.Fprintf(out, "%-8s %s (%s, %d) - %s\n", p.ID, p.Name, p.Gender, p.Age, p.Title)
		}
		return nil
	},
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Show the feedback options per category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		vocab := intent.Vocabulary()
		for _, category := range outfit.CategoryOrder {
			fmt.Fprintf(out, "[%s]\n", category)
			for _, ft := range outfit.FeedbackTypes {
				if options := vocab[ft][category]; len(options) > 0 {
					fmt.Fprintf(out, "  %s: %s\n", ft.Label(), strings.Join(options, ", "))
				}
			}
		}
		return nil
	},
}
