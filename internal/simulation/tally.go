package simulation

import "math"

// Tally accumulates outcome counts and score moments for a set of trials.
// Tallies merge by addition, so merged results do not depend on how trials
// were partitioned.
type Tally struct {
	Trials     int
	Over       int
	HomeWins   int
	AwayWins   int
	Draws      int
	SumHome    float64
	SumAway    float64
	SumTotal   float64
	SumTotalSq float64
}

// Add records one simulated score against an optional line
func (t *Tally) Add(home, away float64, line *float64) {
	t.Trials++
	total := home + away
	switch {
	case home > away:
		t.HomeWins++
	case home < away:
		t.AwayWins++
	default:
		t.Draws++
	}
	if line != nil && total > *line {
		t.Over++
	}
	t.SumHome += home
	t.SumAway += away
	t.SumTotal += total
	t.SumTotalSq += total * total
}

// Merge adds other into t
func (t *Tally) Merge(other Tally) {
	t.Trials += other.Trials
	t.Over += other.Over
	t.HomeWins += other.HomeWins
	t.AwayWins += other.AwayWins
	t.Draws += other.Draws
	t.SumHome += other.SumHome
	t.SumAway += other.SumAway
	t.SumTotal += other.SumTotal
	t.SumTotalSq += other.SumTotalSq
}

func (t Tally) ratio(count int) float64 {
	if t.Trials == 0 {
		return 0
	}
	return float64(count) / float64(t.Trials)
}

// OverProbability returns the share of trials whose total exceeded the line
func (t Tally) OverProbability() float64 { return t.ratio(t.Over) }

// HomeWinProbability returns the share of trials the home side won outright
func (t Tally) HomeWinProbability() float64 { return t.ratio(t.HomeWins) }

// AwayWinProbability returns the share of trials the away side won outright
func (t Tally) AwayWinProbability() float64 { return t.ratio(t.AwayWins) }

// DrawProbability returns the share of tied trials
func (t Tally) DrawProbability() float64 { return t.ratio(t.Draws) }

// MeanTotal returns the mean simulated total score
func (t Tally) MeanTotal() float64 {
	if t.Trials == 0 {
		return 0
	}
	return t.SumTotal / float64(t.Trials)
}

// MeanHome returns the mean simulated home score
func (t Tally) MeanHome() float64 {
	if t.Trials == 0 {
		return 0
	}
	return t.SumHome / float64(t.Trials)
}

// MeanAway returns the mean simulated away score
func (t Tally) MeanAway() float64 {
	if t.Trials == 0 {
		return 0
	}
	return t.SumAway / float64(t.Trials)
}

// Variance returns the sample variance of simulated totals
func (t Tally) Variance() float64 {
	if t.Trials < 2 {
		return 0
	}
	n := float64(t.Trials)
	mean := t.SumTotal / n
	v := (t.SumTotalSq - n*mean*mean) / (n - 1)
	return math.Max(0, v)
}

// StdError returns the binomial standard error of a proportion over the tally
func (t Tally) StdError(p float64) float64 {
	if t.Trials == 0 {
		return 0
	}
	return math.Sqrt(p * (1 - p) / float64(t.Trials))
}
