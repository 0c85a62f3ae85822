package sources

import "strings"

// Minimal polarity lexicon for scoring asset-related posts. Good enough for
// a directional sentiment signal; anything heavier belongs upstream.
var positiveWords = map[string]bool{
	"growth": true, "gain": true, "gains": true, "strong": true, "bullish": true,
	"exciting": true, "potential": true, "rally": true, "surge": true, "record": true,
	"demand": true, "opportunity": true, "promising": true, "up": true, "rise": true,
	"rising": true, "profit": true, "healthy": true, "positive": true, "momentum": true,
}

var negativeWords = map[string]bool{
	"loss": true, "losses": true, "weak": true, "bearish": true, "uncertainty": true,
	"crash": true, "drop": true, "falling": true, "decline": true, "risk": true,
	"risky": true, "fraud": true, "down": true, "sell-off": true, "fear": true,
	"negative": true, "volatile": true, "bubble": true, "overvalued": true,
}

var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"been": true, "will": true, "their": true, "about": true, "more": true,
	"would": true, "there": true, "which": true, "when": true, "what": true,
	"into": true, "asset": true, "assets": true,
}

// Polarity scores text in [-1, 1]: the balance of positive and negative
// lexicon hits over all tokens.
func Polarity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	score := 0
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()")
		switch {
		case positiveWords[w]:
			score++
		case negativeWords[w]:
			score--
		}
	}
	p := float64(score) / float64(len(words))
	if p > 1 {
		p = 1
	}
	if p < -1 {
		p = -1
	}
	return p
}
