// Package enrich computes the enrichment score attached to each alert.
// Scoring is a pure function of its inputs: re-running it on the same
// transaction, price and sentiment always reproduces the same score, which
// is what makes retries and audits safe.
package enrich

import (
	"math"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
)

// MaxSentimentShift bounds how far sentiment can move the score away from
// the neutral (sentiment = 0) score. The actual shift is
// sentiment * min(MaxSentimentShift, base), so it can never exceed this
// bound and can never invert the sign of the price-based component.
const MaxSentimentShift = 1.0

// Input carries everything the scorer looks at.
type Input struct {
	Amount   float64  // transaction amount, >= 0
	Side     string   // domain.TxSideBuy or domain.TxSideSell
	USDValue *float64 // recorded USD value, nil if ingestion had none

	// Price is the resolved price-at-transaction-time, nil when the price
	// index had no usable sample.
	Price *float64

	// Sentiment is the resolved sentiment in [-1, 1]. Callers pass 0 when
	// no sample was available; absence of sentiment never blocks scoring.
	Sentiment float64
}

// Result is the scorer output.
type Result struct {
	Score float64
	// LowConfidence is set when the score is the fallback value because
	// price was unresolved.
	LowConfidence bool
}

// Score derives the enrichment score.
//
// The base component measures how far the recorded USD value deviates from
// amount * price:
//
//	base = log1p(|usd_value - amount*price| / (|amount*price| + 1))
//
// which is strictly increasing in the deviation for a fixed expected value,
// and 0 when they agree (or when no usd_value was recorded). Sentiment then
// shifts the magnitude by sentiment * min(MaxSentimentShift, base): bounded
// by MaxSentimentShift, zero at neutral sentiment, and never large enough
// to flip the sign. The sign itself encodes the side: buys score positive,
// sells negative.
//
// When price is unresolved the score degrades to 0 with LowConfidence set.
func Score(in Input) Result {
	if in.Price == nil {
		return Result{Score: 0, LowConfidence: true}
	}

	base := 0.0
	if in.USDValue != nil {
		expected := in.Amount * *in.Price
		deviation := math.Abs(*in.USDValue - expected)
		base = math.Log1p(deviation / (math.Abs(expected) + 1))
	}

	sentiment := clamp(in.Sentiment, -1, 1)
	magnitude := base + sentiment*math.Min(MaxSentimentShift, base)

	if in.Side == domain.TxSideSell {
		magnitude = -magnitude
	}

	return Result{Score: magnitude}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
