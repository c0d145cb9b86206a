package valuation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"property_valuation/pkg/core/config"
)

// Recommendation is the ordinal investment call.
type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

// AllRecommendations from most to least favourable.
func AllRecommendations() []Recommendation {
	return []Recommendation{StrongBuy, Buy, Hold, Sell, StrongSell}
}

// RecommendationInput are the metrics the scoring rules read.
type RecommendationInput struct {
	NPV            float64
	IRR            float64
	IRRConverged   bool
	EquityMultiple float64
	PaybackYears   float64
	HoldingYears   int
	RiskLevel      RiskLevel
}

// Fragment is one rule's contribution.
type Fragment struct {
	Points int    `json:"points"`
	Text   string `json:"text"`
}

// RecommendationResult is the scored call with its rationale.
type RecommendationResult struct {
	Recommendation Recommendation `json:"recommendation"`
	Score          int            `json:"score"`
	Rationale      string         `json:"rationale"`
	Fragments      []Fragment     `json:"fragments"`
}

// Recommend scores the metrics. The rationale joins the fragments with the
// largest absolute points (first-fired wins ties).
func Recommend(cfg config.RecommendationConfig, in RecommendationInput) RecommendationResult {
	var res RecommendationResult
	add := func(points int, text string) {
		res.Score += points
		res.Fragments = append(res.Fragments, Fragment{Points: points, Text: text})
	}

	// 1. NPV
	if in.NPV > 0 {
		add(2, fmt.Sprintf("positive NPV of $%.0f", in.NPV))
	} else {
		add(-2, fmt.Sprintf("negative NPV of $%.0f", in.NPV))
	}

	// 2. IRR; an unsolved IRR is undetermined, not zero
	switch {
	case !in.IRRConverged && in.IRR == 0:
		add(-1, "IRR could not be determined")
	case in.IRR >= cfg.IRRStrong:
		add(2, fmt.Sprintf("strong IRR of %.1f%%", in.IRR*100))
	case in.IRR >= cfg.IRRGood:
		add(1, fmt.Sprintf("solid IRR of %.1f%%", in.IRR*100))
	case in.IRR < cfg.IRRPoor:
		add(-2, fmt.Sprintf("weak IRR of %.1f%%", in.IRR*100))
	}

	// 3. Equity multiple
	switch {
	case in.EquityMultiple >= cfg.EquityMultipleStrong:
		add(2, fmt.Sprintf("equity multiple of %.2fx", in.EquityMultiple))
	case in.EquityMultiple >= cfg.EquityMultipleGood:
		add(1, fmt.Sprintf("equity multiple of %.2fx", in.EquityMultiple))
	case in.EquityMultiple < cfg.EquityMultiplePoor:
		add(-2, fmt.Sprintf("equity multiple of %.2fx loses capital", in.EquityMultiple))
	}

	// 4. Payback
	switch {
	case in.PaybackYears <= cfg.PaybackFastYears:
		add(1, fmt.Sprintf("payback in %.1f years", in.PaybackYears))
	case in.HoldingYears > 0 && in.PaybackYears > float64(in.HoldingYears):
		add(-1, "capital not returned within the hold")
	}

	// 5. Risk
	switch in.RiskLevel {
	case RiskLow:
		add(1, "low risk profile")
	case RiskHigh:
		add(-1, "high risk profile")
	case RiskVeryHigh:
		add(-2, "very high risk profile")
	}

	res.Recommendation = recommendationFor(cfg, res.Score)
	res.Rationale = rationale(res.Fragments, cfg.RationaleFragments)
	return res
}

func recommendationFor(cfg config.RecommendationConfig, score int) Recommendation {
	switch {
	case score >= cfg.StrongBuyMin:
		return StrongBuy
	case score >= cfg.BuyMin:
		return Buy
	case score >= cfg.HoldMin:
		return Hold
	case score >= cfg.SellMin:
		return Sell
	default:
		return StrongSell
	}
}

func rationale(fragments []Fragment, n int) string {
	ranked := make([]Fragment, len(fragments))
	copy(ranked, fragments)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(float64(ranked[i].Points)) > math.Abs(float64(ranked[j].Points))
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	texts := make([]string, len(ranked))
	for i, f := range ranked {
		texts[i] = f.Text
	}
	return strings.Join(texts, "; ")
}
