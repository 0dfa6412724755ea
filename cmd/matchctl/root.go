package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"studybuddy-matcher/internal/models"
	"studybuddy-matcher/internal/utils"
)

const appName = "matchctl"

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "matchctl ranks study partners from profile files and manages the matcher database",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if logLevel == "" {
				return nil
			}
			return utils.InitLogger(logLevel)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			utils.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "enable logging at this level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRankCmd(),
		newScoreCmd(),
		newTierCmd(),
		newMigrateCmd(),
		newImportCmd(),
	)

	return rootCmd
}

// loadProfiles reads a JSON array of profiles, or a profile CSV when the file ends in .csv.
func loadProfiles(path string) ([]*models.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		profiles, errs := utils.NewCSVParser().ParseProfiles(string(data), filepath.Base(path))
		if len(profiles) == 0 && len(errs) > 0 {
			return nil, fmt.Errorf("parsing %s: %w", path, errs[0])
		}
		for _, e := range errs {
			utils.GetLogger().Warn("Skipped CSV row", utils.Error(e))
		}
		return profiles, nil
	}

	var profiles []*models.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	normalized := make([]*models.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p == nil {
			return nil, fmt.Errorf("decoding %s: %w: null entry", path, models.ErrInvalidProfile)
		}
		normalized = append(normalized, p.Normalize())
	}
	return normalized, nil
}

func findProfile(profiles []*models.Profile, uid string) (*models.Profile, error) {
	for _, p := range profiles {
		if p.UID == uid {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrProfileNotFound, uid)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
