package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/hkguide/server/domain"
)

func newTestTTS(t *testing.T, baseURL string) *ElevenLabsTTS {
	t.Helper()
	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key", APIBaseURL: baseURL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}
	return tts
}

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	_, err := NewElevenLabsTTS(config, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	os.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVEN_LABS_API_KEY")

	config = NewElevenLabsConfigFromEnv()
	tts, err := NewElevenLabsTTS(config, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}
	if tts.voice != defaultVoice {
		t.Errorf("Expected default voice '%s', got '%s'", defaultVoice, tts.voice)
	}
	if tts.modelID != "eleven_monolingual_v1" {
		t.Errorf("Expected model eleven_monolingual_v1, got %s", tts.modelID)
	}
	if tts.stability != 0.75 || tts.clarity != 0.75 {
		t.Errorf("Expected 0.75 voice settings, got %f/%f", tts.stability, tts.clarity)
	}
	if tts.timeout != 15*time.Second {
		t.Errorf("Expected 15s timeout, got %s", tts.timeout)
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	if err := ValidateElevenLabsConfig(ElevenLabsConfig{APIKey: "k", Stability: 2}); err == nil {
		t.Error("Expected error for stability out of range")
	}
	if err := ValidateElevenLabsConfig(ElevenLabsConfig{APIKey: "k", Clarity: -0.5}); err == nil {
		t.Error("Expected error for clarity out of range")
	}
}

func TestResolveVoiceID(t *testing.T) {
	tests := map[string]string{
		"Alice":        "21m00Tcm4TlvDq8ikWAM",
		"Josh":         "TxGEqnHWrfWFTfGW9XjX",
		"Arnold":       "VR6AewLTigWG4xSOukaG",
		"Bella":        "EXAVITQu4vr4xnSDxMaL",
		"customVoice1": "customVoice1",
	}
	for in, want := range tests {
		if got := ResolveVoiceID(in); got != want {
			t.Errorf("ResolveVoiceID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	short := "Visit the Peak."
	if got := TruncateText(short); got != short {
		t.Errorf("Expected short text unchanged, got %q", got)
	}

	long := strings.Repeat("a", 301)
	got := TruncateText(long)
	if got != strings.Repeat("a", 300)+"..." {
		t.Errorf("Expected 300 chars plus ellipsis, got length %d", len(got))
	}

	exact := strings.Repeat("b", 300)
	if got := TruncateText(exact); got != exact {
		t.Error("Expected text at the limit to be unchanged")
	}
}

func TestSynthesize_Request(t *testing.T) {
	var gotPath, gotKey string
	var got ElevenLabsRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xFF, 0xFB, 0x01, 0x02})
	}))
	defer srv.Close()

	tts := newTestTTS(t, srv.URL)

	audio, err := tts.Synthesize(context.Background(), strings.Repeat("x", 500), "Josh")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(audio) != 4 {
		t.Errorf("Expected 4 bytes of audio, got %d", len(audio))
	}
	if gotPath != "/text-to-speech/TxGEqnHWrfWFTfGW9XjX" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotKey != "test-api-key" {
		t.Errorf("Expected xi-api-key header, got %q", gotKey)
	}
	if len(got.Text) != 303 || !strings.HasSuffix(got.Text, "...") {
		t.Errorf("Expected truncated text, got length %d", len(got.Text))
	}
	if got.ModelID != "eleven_monolingual_v1" {
		t.Errorf("Unexpected model %s", got.ModelID)
	}
	if got.VoiceSettings.Stability != 0.75 || got.VoiceSettings.SimilarityBoost != 0.75 {
		t.Errorf("Unexpected voice settings %+v", got.VoiceSettings)
	}
}

func TestSynthesize_DefaultVoiceAndPassThrough(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte{1})
	}))
	defer srv.Close()

	tts := newTestTTS(t, srv.URL)
	ctx := context.Background()

	if _, err := tts.Synthesize(ctx, "hello", ""); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if _, err := tts.Synthesize(ctx, "hello", "abc123"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if paths[0] != "/text-to-speech/21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("Expected default voice Alice, got %s", paths[0])
	}
	if paths[1] != "/text-to-speech/abc123" {
		t.Errorf("Expected unknown voice to pass through, got %s", paths[1])
	}
}

func TestSynthesize_Failures(t *testing.T) {
	cases := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{"status_non_2xx", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
		}, http.StatusUnauthorized},
		{"empty_body", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := newTestTTS(t, srv.URL).Synthesize(context.Background(), "hello", "Alice")
			var synthErr *domain.SynthesisError
			if !errors.As(err, &synthErr) {
				t.Fatalf("Expected SynthesisError, got %v", err)
			}
			if synthErr.StatusCode != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, synthErr.StatusCode)
			}
		})
	}
}

func TestSynthesize_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tts := newTestTTS(t, srv.URL)
	tts.timeout = 50 * time.Millisecond

	_, err := tts.Synthesize(context.Background(), "hello", "Alice")
	var synthErr *domain.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Expected SynthesisError, got %v", err)
	}
	if !synthErr.Timeout {
		t.Errorf("Expected timeout flag, got %v", synthErr)
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	tts := newTestTTS(t, "http://127.0.0.1:1")

	for _, text := range []string{"", "   "} {
		if _, err := tts.Synthesize(context.Background(), text, "Alice"); err == nil {
			t.Errorf("Expected error for %q", text)
		}
	}
}

func TestListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"voices":[{"voice_id":"21m00Tcm4TlvDq8ikWAM","name":"Rachel"}]}`))
	}))
	defer srv.Close()

	voices, err := newTestTTS(t, srv.URL).ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != 1 || voices[0].Name != "Rachel" {
		t.Errorf("Unexpected voices %+v", voices)
	}
}

func TestMockTTS(t *testing.T) {
	m := NewMockTTS(zap.NewNop())

	audio, err := m.Synthesize(context.Background(), "hello", "Bella")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(audio) == 0 {
		t.Error("Expected non-empty audio")
	}

	voices, _ := m.ListVoices(context.Background())
	if len(voices) != 4 || voices[0].Name != "Alice" {
		t.Errorf("Unexpected builtin voices %+v", voices)
	}
}
