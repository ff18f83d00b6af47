package models

// Sport identifies a supported sport
type Sport string

const (
	SportFootball         Sport = "football"
	SportBasketball       Sport = "basketball"
	SportAmericanFootball Sport = "american_football"
	SportHockey           Sport = "hockey"
	SportBaseball         Sport = "baseball"
)

// KnownSports lists every sport with built-in support
var KnownSports = []Sport{
	SportFootball,
	SportBasketball,
	SportAmericanFootball,
	SportHockey,
	SportBaseball,
}

// Valid reports whether the sport is one of the known sports
func (s Sport) Valid() bool {
	for _, known := range KnownSports {
		if s == known {
			return true
		}
	}
	return false
}

// Market represents the betting market being forecast
type Market string

const (
	MarketWinner    Market = "WINNER"
	MarketOverUnder Market = "OVER_UNDER"
	MarketSpread    Market = "SPREAD"
)

// KnownMarkets lists every supported market
var KnownMarkets = []Market{MarketWinner, MarketOverUnder, MarketSpread}

// Valid reports whether the market is supported
func (m Market) Valid() bool {
	switch m {
	case MarketWinner, MarketOverUnder, MarketSpread:
		return true
	default:
		return false
	}
}

// RequiresLine reports whether a betting line must accompany the request
func (m Market) RequiresLine() bool {
	return m == MarketOverUnder || m == MarketSpread
}

// Simulated reports whether the market is cross-checked by score simulation
func (m Market) Simulated() bool {
	return m == MarketWinner || m == MarketOverUnder
}

// TemporalState distinguishes pre-game forecasts from in-play forecasts
type TemporalState string

const (
	StatePreGame TemporalState = "pre_game"
	StateLive    TemporalState = "live"
)

// Valid reports whether the temporal state is supported
func (t TemporalState) Valid() bool {
	return t == StatePreGame || t == StateLive
}

// ModelFamily names a family of estimators sharing one adapter
type ModelFamily string

const (
	FamilyLogistic      ModelFamily = "logistic"
	FamilyGradientBoost ModelFamily = "gradient_boost"
	FamilyLinearMargin  ModelFamily = "linear_margin"
	FamilyPoissonGoals  ModelFamily = "poisson_goals"
)

// ScoreDistribution selects how simulated scores are sampled
type ScoreDistribution string

const (
	DistributionPoisson ScoreDistribution = "poisson"
	DistributionNormal  ScoreDistribution = "normal"
)
