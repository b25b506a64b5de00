package predict

import "strings"

// #region prototypes
// Intent labels produced by the default prototypes.
const (
	AskQuestion   = "ask_question"
	RequestHelp   = "request_help"
	ShareFeeling  = "share_feeling"
	GiveCommand   = "give_command"
	CreativeAsk   = "creative_request"
	SmallTalk     = "small_talk"
	DescribeImage = "describe_image"
)

// DefaultPrototypes maps each intent to the phrases that typify it. Each
// phrase list is joined and encoded once when the forecaster is primed.
func DefaultPrototypes() map[string]string {
	return map[string]string{
		AskQuestion: join("who is", "what is", "where is", "when did", "how many", "how much",
			"how old", "how far", "which", "capital", "population", "definition", "price"),
		RequestHelp: join("help me", "can you", "could you", "how do i", "i need", "stuck",
			"problem", "fix", "explain", "show me how"),
		ShareFeeling: join("i feel", "feeling", "sad", "happy", "angry", "scared", "anxious",
			"lonely", "worried", "frustrated", "grateful", "proud"),
		GiveCommand: join("open", "set", "start", "stop", "turn on", "turn off", "remind me",
			"play", "send", "call", "schedule"),
		CreativeAsk: join("write me", "compose", "imagine", "tell me a story", "make up",
			"poem", "story about", "fiction", "invent"),
		SmallTalk: join("hello", "hi", "hey", "how are you", "good morning", "thanks",
			"nice", "cool", "bye", "see you"),
		DescribeImage: join("what is in this picture", "describe this image", "photo",
			"what do you see", "look at this", "camera", "screenshot"),
	}
}

func join(phrases ...string) string {
	return strings.Join(phrases, " ")
}

// #endregion prototypes
