package client

// StarterInvestmentData is the built-in dataset shown to users who have no
// server-side result yet — a conservative example portfolio, so the report
// view renders something meaningful before the first questionnaire lands.
// It is never persisted.
func StarterInvestmentData() *InvestmentData {
	return &InvestmentData{
		Recommendations: []AllocationRecommendation{
			{
				AssetType:            "Stocks",
				AllocationPercentage: 40,
				Details:              "Broad-market index funds for long-term growth.",
			},
			{
				AssetType:            "Bonds",
				AllocationPercentage: 30,
				Details:              "Investment-grade bonds to dampen volatility.",
			},
			{
				AssetType:            "Real Estate",
				AllocationPercentage: 15,
				Details:              "REIT exposure for income and diversification.",
			},
			{
				AssetType:            "Cash",
				AllocationPercentage: 15,
				Details:              "Liquid reserves for near-term needs.",
			},
		},
		MarketAnalysis: map[string]MarketAnalysis{
			"Stocks": {
				Outlook:    "neutral",
				Commentary: "Valuations are mixed; broad diversification is favoured over sector bets.",
			},
			"Bonds": {
				Outlook:    "positive",
				Commentary: "Current yields offer reasonable income with moderate duration risk.",
			},
			"Real Estate": {
				Outlook:    "neutral",
				Commentary: "Rate sensitivity persists; listed REITs remain the accessible entry point.",
			},
			"Cash": {
				Outlook:    "neutral",
				Commentary: "Money-market rates make holding reserves less costly than in prior years.",
			},
		},
		ReviewSchedule: "Review this allocation quarterly, or after any major life change.",
		Disclaimer: "This is a sample allocation for illustration only and is not " +
			"financial advice. Complete the questionnaire to receive a personalised " +
			"recommendation.",
	}
}
