package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"studybuddy-matcher/internal/services/matcher"
)

func newScoreCmd() *cobra.Command {
	var profilesFile string

	cmd := &cobra.Command{
		Use:   "score <uid-a> <uid-b>",
		Short: "Explain the compatibility of profile a towards profile b",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles(profilesFile)
			if err != nil {
				return err
			}

			a, err := findProfile(profiles, args[0])
			if err != nil {
				return err
			}
			b, err := findProfile(profiles, args[1])
			if err != nil {
				return err
			}

			score, err := matcher.ScorePair(a, b)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"compatibility": score,
				"tier":          matcher.TierFor(score.Total),
			})
		},
	}

	cmd.Flags().StringVarP(&profilesFile, "profiles", "p", "", "JSON or CSV file containing both profiles")
	_ = cmd.MarkFlagRequired("profiles")

	return cmd
}

func newTierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tier <score>",
		Short: "Show the tier for a compatibility score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("score must be an integer: %w", err)
			}

			tier := matcher.TierFor(score)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", tier.Name, tier.Message, tier.Color.Hex())
			return nil
		},
	}
}
