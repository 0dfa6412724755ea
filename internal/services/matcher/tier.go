package matcher

import "studybuddy-matcher/internal/models"

// tiers is ordered from the highest threshold down.
var tiers = []models.Tier{
	{Name: "perfect", MinScore: 90, Message: "Perfect match", Color: models.ColorGreen},
	{Name: "excellent", MinScore: 80, Message: "Excellent compatibility", Color: models.ColorTeal},
	{Name: "great", MinScore: 70, Message: "Great study partner", Color: models.ColorYellow},
	{Name: "good", MinScore: 60, Message: "Good match for collaboration", Color: models.ColorOrange},
}

var potentialTier = models.Tier{Name: "potential", MinScore: 0, Message: "Potential partner", Color: models.ColorGray}

// TierFor maps a compatibility score to its tier.
func TierFor(score int) models.Tier {
	for _, t := range tiers {
		if score >= t.MinScore {
			return t
		}
	}
	return potentialTier
}
