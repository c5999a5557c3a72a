package tts

import (
	"sort"

	"github.com/hkguide/server/domain/repositories"
)

// voiceIDs maps the named voices offered in the app to Eleven Labs ids.
var voiceIDs = map[string]string{
	"Alice":  "21m00Tcm4TlvDq8ikWAM",
	"Josh":   "TxGEqnHWrfWFTfGW9XjX",
	"Arnold": "VR6AewLTigWG4xSOukaG",
	"Bella":  "EXAVITQu4vr4xnSDxMaL",
}

// ResolveVoiceID maps a voice name to its id. Unknown names are treated as
// ids already.
func ResolveVoiceID(voice string) string {
	if id, ok := voiceIDs[voice]; ok {
		return id
	}
	return voice
}

// BuiltinVoices lists the named voices, sorted by name.
func BuiltinVoices() []repositories.Voice {
	voices := make([]repositories.Voice, 0, len(voiceIDs))
	for name, id := range voiceIDs {
		voices = append(voices, repositories.Voice{ID: id, Name: name})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })
	return voices
}
