package fusion

import (
	"context"
	"math"
	"net/http"
)

// #region image-stats
// ImageStats is the default FeatureAnalyzer: sniffed format, size and
// byte-level Shannon entropy in bits.
type ImageStats struct{}

func (ImageStats) Analyze(_ context.Context, data []byte) (Features, error) {
	return Features{
		Format:  http.DetectContentType(data),
		Bytes:   len(data),
		Entropy: entropy(data),
	}, nil
}

func entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	n := float64(len(data))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// #endregion image-stats
