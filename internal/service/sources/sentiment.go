package sources

import (
	"context"
	"sort"
	"strings"
	"time"

	"RWAPrice/internal/domain/models"
	"RWAPrice/internal/service/ratelimit"
	xlogger "RWAPrice/pkg/logger"
)

// SentimentClient fetches recent posts mentioning an asset and scores their
// polarity locally with a small lexicon.
type SentimentClient struct {
	base
	url string
}

func NewSentimentClient(url string, timeout time.Duration, limiter *ratelimit.Limiter, logger *xlogger.Logger) *SentimentClient {
	return &SentimentClient{
		base: newBase(models.SourceSentiment, timeout, limiter, nil, 0, logger),
		url:  url,
	}
}

func (c *SentimentClient) Kind() models.SourceKind { return models.SourceSentiment }

// sentimentResponse is the expected wire shape of the post feed.
type sentimentResponse struct {
	Posts []struct {
		Text   string `json:"text"`
		Origin string `json:"origin"`
	} `json:"posts"`
}

func (c *SentimentClient) Fetch(ctx context.Context, asset models.AssetContext) (map[string]interface{}, error) {
	if err := c.allow(); err != nil {
		return nil, err
	}

	var resp sentimentResponse
	err := c.getJSON(ctx, c.url, map[string][]string{
		"asset_id": {asset.AssetID},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Posts == nil {
		return nil, models.NewSourceError(c.kind, models.ErrKindMalformed, "missing posts")
	}

	var overall float64
	byOrigin := map[string][]float64{}
	texts := make([]string, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		score := Polarity(p.Text)
		overall += score
		origin := p.Origin
		if origin == "" {
			origin = "unknown"
		}
		byOrigin[origin] = append(byOrigin[origin], score)
		texts = append(texts, p.Text)
	}
	if n := len(resp.Posts); n > 0 {
		overall /= float64(n)
	}

	breakdown := make(map[string]interface{}, len(byOrigin))
	for origin, scores := range byOrigin {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		breakdown[origin] = sum / float64(len(scores))
	}

	return map[string]interface{}{
		"overall_sentiment": overall,
		"mention_volume":    len(resp.Posts),
		"trending_keywords": topKeywords(texts, 5),
		"source_breakdown":  breakdown,
	}, nil
}

// topKeywords returns the n most frequent non-stopword tokens across texts.
func topKeywords(texts []string, n int) []string {
	counts := map[string]int{}
	for _, t := range texts {
		for _, w := range strings.Fields(strings.ToLower(t)) {
			w = strings.Trim(w, ".,!?;:\"'()")
			if len(w) < 4 || stopwords[w] {
				continue
			}
			counts[w]++
		}
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}
