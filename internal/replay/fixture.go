package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/rahl-ai/rahl-core/internal/history"
)

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader

// #region export

// ExportFixture turns stored interactions (newest first, as history.Recent
// returns them) into a chronological fixture. Each turn's recorded emotion
// becomes its expectation. Image and multimodal rows carry no payload in
// history and are skipped.
func ExportFixture(description string, rows []history.Interaction) *Fixture {
	f := &Fixture{Description: description}
	for _, row := range slices.Backward(rows) {
		if row.Modality != "text" && row.Modality != "audio" {
			continue
		}
		f.Interactions = append(f.Interactions, FixtureInteraction{
			TurnID: row.ID,
			Input:  row.Input,
		})
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			TurnID:  row.ID,
			Outcome: "ok",
			Emotion: row.EmotionLabel,
		})
	}
	return f
}

// #endregion export
