package forecast

const (
	AdvisoryExcellent   = "Excellent conditions for solar generation. A good day to run high-consumption appliances."
	AdvisoryGood        = "Good conditions for solar generation. Production should be within the expected range."
	AdvisoryModerate    = "Moderate conditions for solar generation. Consider reducing the use of high-consumption appliances."
	AdvisoryUnfavorable = "Unfavorable conditions for solar generation. Conserving energy is recommended."
)

// Advisory picks the message tier for a climatic factor. Boundary values
// belong to the higher tier.
func Advisory(factor float64) string {
	switch {
	case factor >= 0.8:
		return AdvisoryExcellent
	case factor >= 0.6:
		return AdvisoryGood
	case factor >= 0.4:
		return AdvisoryModerate
	default:
		return AdvisoryUnfavorable
	}
}
