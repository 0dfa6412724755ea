package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"studybuddy-matcher/internal/services/matcher"
)

func newRankCmd() *cobra.Command {
	var (
		profilesFile string
		uid          string
		workers      int
		limit        int
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank every profile in a file against one requester",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := loadProfiles(profilesFile)
			if err != nil {
				return err
			}

			requester, err := findProfile(profiles, uid)
			if err != nil {
				return err
			}

			matches, err := matcher.NewEngine(workers).FindPartners(requester, profiles)
			if err != nil {
				return err
			}
			if limit > 0 && len(matches) > limit {
				matches = matches[:limit]
			}

			if asJSON {
				return printJSON(cmd, matches)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tCANDIDATE\tSCORE\tTIER\tREASONS")
			for i, m := range matches {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i+1, m.CandidateID, m.CompatibilityScore, m.Message, strings.Join(m.Reasons, "; "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&profilesFile, "profiles", "p", "", "JSON or CSV file with the candidate pool")
	cmd.Flags().StringVarP(&uid, "uid", "u", "", "uid of the requester inside the pool")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "scoring goroutines (0 uses GOMAXPROCS)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many partners")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	_ = cmd.MarkFlagRequired("profiles")
	_ = cmd.MarkFlagRequired("uid")

	return cmd
}
