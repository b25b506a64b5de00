package replay

import (
	"context"

	"github.com/rahl-ai/rahl-core/internal/engine"
	"github.com/rahl-ai/rahl-core/internal/router"
)

// #region replay

// Replay sends each interaction through h in order. Failures are recorded
// per turn and never stop the run.
func Replay(ctx context.Context, h router.Handler, interactions []FixtureInteraction) []Result {
	results := make([]Result, 0, len(interactions))
	for _, inter := range interactions {
		res, err := h.ProcessRequest(ctx, inter.ToRequest())
		r := Result{TurnID: inter.TurnID, Outcome: engine.Classify(err)}
		if err != nil {
			r.Reason = err.Error()
			results = append(results, r)
			continue
		}
		r.ResultID = res.ID
		if res.Emotion != nil {
			r.Emotion = string(res.Emotion.Label)
		}
		if res.Predictions != nil {
			if top, ok := res.Predictions.Top(); ok {
				r.TopPrediction = top.Label
			}
		}
		results = append(results, r)
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalTurns: len(results)}
	for _, r := range results {
		if r.Outcome == engine.ClassOK {
			s.OK++
			continue
		}
		if s.Rejected == nil {
			s.Rejected = make(map[string]int)
		}
		s.Rejected[r.Outcome]++
	}
	return s
}

// Check compares results against expectations by turn id. Turns without
// an expectation are not checked; an expected turn with no result is a
// mismatch.
func Check(results []Result, expected []FixtureExpectedResult) []Mismatch {
	byTurn := make(map[string]Result, len(results))
	for _, r := range results {
		byTurn[r.TurnID] = r
	}
	var out []Mismatch
	for _, exp := range expected {
		actual, ok := byTurn[exp.TurnID]
		switch {
		case !ok,
			actual.Outcome != exp.Outcome,
			exp.Emotion != "" && actual.Emotion != exp.Emotion:
			out = append(out, Mismatch{TurnID: exp.TurnID, Expected: exp, Actual: actual})
		}
	}
	return out
}

// #endregion replay
