package entities

import "sync"

// TranscriptState is a snapshot of the transcript buffer.
type TranscriptState struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Version uint64 `json:"version"`
}

// TranscriptBuffer holds the latest recognizer output. Every update replaces
// the previous text; the version lets observers order partial and final
// results.
type TranscriptBuffer struct {
	mu    sync.RWMutex
	state TranscriptState
}

func NewTranscriptBuffer() *TranscriptBuffer {
	return &TranscriptBuffer{}
}

// Update overwrites the buffer and returns the new snapshot.
func (b *TranscriptBuffer) Update(text string, final bool) TranscriptState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = TranscriptState{
		Text:    text,
		IsFinal: final,
		Version: b.state.Version + 1,
	}
	return b.state
}

// Read returns the current text, or "" when nothing has been recognized.
func (b *TranscriptBuffer) Read() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Text
}

func (b *TranscriptBuffer) State() TranscriptState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Clear empties the buffer. The version keeps increasing so a cleared buffer
// is still ordered after the result it replaced.
func (b *TranscriptBuffer) Clear() TranscriptState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = TranscriptState{Version: b.state.Version + 1}
	return b.state
}
