package codec

import "fmt"

// #region embedding
// DecodeEmbedding reads the "embedding" list from a text-model output.
func DecodeEmbedding(out map[string]any) ([]float32, error) {
	raw, ok := out["embedding"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing embedding", ErrMalformedOutput)
	}
	return floats(raw, "embedding")
}

// #endregion embedding

// #region detections
// DecodeDetections reads the "detections" list from a vision-model output.
// A missing list means nothing was detected.
func DecodeDetections(out map[string]any) ([]Detection, error) {
	raw, ok := out["detections"].([]any)
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	dets := make([]Detection, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: detection %d is not an object", ErrMalformedOutput, i)
		}
		var d Detection
		d.Label, _ = m["label"].(string)
		if s, ok := m["score"].(float64); ok {
			d.Score = float32(s)
		}
		if box, ok := m["box"].([]any); ok {
			vals, err := floats(box, "box")
			if err != nil {
				return nil, err
			}
			copy(d.Box[:], vals)
		}
		dets = append(dets, d)
	}
	return dets, nil
}

// #endregion detections

// #region transcript
// DecodeTranscript reads an audio-model output.
func DecodeTranscript(out map[string]any) (Transcript, error) {
	text, ok := out["text"].(string)
	if !ok {
		return Transcript{}, fmt.Errorf("%w: missing transcript text", ErrMalformedOutput)
	}
	t := Transcript{Text: text}
	t.Language, _ = out["language"].(string)
	if c, ok := out["confidence"].(float64); ok {
		t.Confidence = float32(c)
	}
	return t, nil
}

// #endregion transcript

// #region helpers
func floats(raw []any, field string) ([]float32, error) {
	vec := make([]float32, len(raw))
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is %T", ErrMalformedOutput, field, i, v)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// #endregion helpers
