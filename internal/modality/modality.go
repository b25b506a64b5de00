package modality

// #region parse
// Parse resolves a caller-supplied modality name. An empty name defaults to
// Text; anything outside the closed set is rejected, never defaulted.
func Parse(name string) (Modality, error) {
	switch Modality(name) {
	case "":
		return Text, nil
	case Text, Image, Audio, Multimodal:
		return Modality(name), nil
	}
	return "", &UnsupportedError{Name: name}
}

// #endregion parse

// #region required-kinds
// RequiredKinds lists the model kinds a modality invokes.
func (m Modality) RequiredKinds() []ModelKind {
	switch m {
	case Text:
		return []ModelKind{KindText}
	case Image:
		return []ModelKind{KindVision}
	case Audio:
		return []ModelKind{KindAudio, KindText}
	case Multimodal:
		return Kinds()
	}
	return nil
}

// #endregion required-kinds
