package replay

import "github.com/rahl-ai/rahl-core/internal/router"

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Interactions    []FixtureInteraction    `json:"interactions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results,omitempty"`
}

// FixtureInteraction is one recorded request.
type FixtureInteraction struct {
	TurnID   string         `json:"turn_id"`
	Input    string         `json:"input,omitempty"`
	Modality string         `json:"modality,omitempty"`
	Data     []byte         `json:"data,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// FixtureExpectedResult is the outcome class a turn must produce, and
// optionally the emotion label it must carry.
type FixtureExpectedResult struct {
	TurnID  string `json:"turn_id"`
	Outcome string `json:"outcome"`
	Emotion string `json:"emotion,omitempty"`
}

// ToRequest converts a fixture interaction into a router request.
func (fi FixtureInteraction) ToRequest() router.Request {
	return router.Request{
		Input:    fi.Input,
		Modality: fi.Modality,
		Data:     fi.Data,
		Context:  fi.Context,
	}
}

// #endregion fixture-types

// #region result-types

// Result captures the outcome of replaying one interaction.
type Result struct {
	TurnID        string `json:"turn_id"`
	Outcome       string `json:"outcome"` // an engine.Class* value
	Reason        string `json:"reason,omitempty"`
	ResultID      string `json:"result_id,omitempty"`
	Emotion       string `json:"emotion,omitempty"`
	TopPrediction string `json:"top_prediction,omitempty"`
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns int            `json:"total_turns"`
	OK         int            `json:"ok"`
	Rejected   map[string]int `json:"rejected,omitempty"`
}

// Mismatch is a turn whose outcome differs from the fixture's expectation.
type Mismatch struct {
	TurnID   string
	Expected FixtureExpectedResult
	Actual   Result
}

// #endregion result-types
