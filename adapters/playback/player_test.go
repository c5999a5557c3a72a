package playback

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/entities"
)

type sinkCall struct {
	op       string
	handleID string
	uri      string
}

type fakeSink struct {
	mu      sync.Mutex
	calls   []sinkCall
	loadErr error
	playErr error
}

func (s *fakeSink) record(c sinkCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *fakeSink) Load(ctx context.Context, handleID, uri string) error {
	s.record(sinkCall{op: "load", handleID: handleID, uri: uri})
	return s.loadErr
}

func (s *fakeSink) Play(ctx context.Context, handleID string) error {
	s.record(sinkCall{op: "play", handleID: handleID})
	return s.playErr
}

func (s *fakeSink) Stop(ctx context.Context, handleID string) error {
	s.record(sinkCall{op: "stop", handleID: handleID})
	return nil
}

func (s *fakeSink) ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		out = append(out, c.op)
	}
	return out
}

func TestDataURIRoundTrip(t *testing.T) {
	audio := []byte{0xFF, 0xFB, 0x90, 0x00, 0x42}
	uri := EncodeDataURI(audio)

	if uri[:len(dataURIPrefix)] != "data:audio/mpeg;base64," {
		t.Errorf("Unexpected prefix in %s", uri)
	}
	decoded, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI() error = %v", err)
	}
	if !bytes.Equal(decoded, audio) {
		t.Errorf("Expected %v, got %v", audio, decoded)
	}

	if _, err := DecodeDataURI("data:audio/wav;base64,AAAA"); err == nil {
		t.Error("Expected error for wrong MIME type")
	}
	if _, err := DecodeDataURI(dataURIPrefix + "!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}

func TestPlay_EmptyAudio(t *testing.T) {
	sink := &fakeSink{}
	player := NewPlayer(sink, zaptest.NewLogger(t))

	h, err := player.Play(context.Background(), nil)
	var pbErr *domain.PlaybackError
	if !errors.As(err, &pbErr) {
		t.Fatalf("Expected PlaybackError, got %v", err)
	}
	if h != nil {
		t.Error("Expected no handle")
	}
	if len(sink.ops()) != 0 {
		t.Errorf("Expected no sink calls, got %v", sink.ops())
	}
	if player.Current() != nil {
		t.Error("Expected no live handle")
	}
}

func TestPlay_FinishedLifecycle(t *testing.T) {
	sink := &fakeSink{}
	player := NewPlayer(sink, zaptest.NewLogger(t))

	h, err := player.Play(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if h.Status() != entities.PlaybackPlaying {
		t.Errorf("Expected playing, got %s", h.Status())
	}
	if sink.calls[0].uri != EncodeDataURI([]byte{1, 2, 3}) {
		t.Errorf("Expected data URI to be loaded, got %s", sink.calls[0].uri)
	}

	go player.Report(h.ID, entities.PlaybackFinished, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if status != entities.PlaybackFinished {
		t.Errorf("Expected finished, got %s", status)
	}
	if player.Current() != nil {
		t.Error("Expected finished handle to be released")
	}
}

func TestReport_RepeatedPlayingIsQuiet(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	player := NewPlayer(&fakeSink{}, zap.New(core))

	h, err := player.Play(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	player.Report(h.ID, entities.PlaybackPlaying, "")
	if h.Status() != entities.PlaybackPlaying {
		t.Errorf("Expected playing, got %s", h.Status())
	}
	if player.Current() != h {
		t.Error("Expected handle to stay live")
	}
	if logs.Len() != 0 {
		t.Errorf("Expected no warnings, got %d", logs.Len())
	}

	player.Report(h.ID, entities.PlaybackFinished, "")
	if h.Status() != entities.PlaybackFinished {
		t.Errorf("Expected finished, got %s", h.Status())
	}
}

func TestPlay_DeviceError(t *testing.T) {
	player := NewPlayer(&fakeSink{}, zaptest.NewLogger(t))
	h, _ := player.Play(context.Background(), []byte{1})

	player.Report(h.ID, entities.PlaybackError, "decoder failed")

	status, err := h.Wait(context.Background())
	var pbErr *domain.PlaybackError
	if !errors.As(err, &pbErr) || pbErr.Reason != "decoder failed" {
		t.Errorf("Expected PlaybackError with reason, got %v", err)
	}
	if status != entities.PlaybackError {
		t.Errorf("Expected error status, got %s", status)
	}
}

func TestPlay_ReleasesPreviousHandle(t *testing.T) {
	sink := &fakeSink{}
	player := NewPlayer(sink, zaptest.NewLogger(t))

	first, _ := player.Play(context.Background(), []byte{1})
	second, err := player.Play(context.Background(), []byte{2})
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if first.Status() != entities.PlaybackReleased {
		t.Errorf("Expected first handle released, got %s", first.Status())
	}
	if player.Current() != second {
		t.Error("Expected second handle to be live")
	}

	want := []string{"load", "play", "stop", "load", "play"}
	got := sink.ops()
	if len(got) != len(want) {
		t.Fatalf("Expected ops %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Op %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Late report for the released handle is ignored.
	player.Report(first.ID, entities.PlaybackFinished, "")
	if second.Status() != entities.PlaybackPlaying {
		t.Errorf("Expected second handle still playing, got %s", second.Status())
	}
}

func TestPlay_LoadFailure(t *testing.T) {
	sink := &fakeSink{loadErr: errors.New("device gone")}
	player := NewPlayer(sink, zaptest.NewLogger(t))

	_, err := player.Play(context.Background(), []byte{1})
	var pbErr *domain.PlaybackError
	if !errors.As(err, &pbErr) {
		t.Fatalf("Expected PlaybackError, got %v", err)
	}
	if player.Current() != nil {
		t.Error("Expected no live handle after load failure")
	}
}

func TestRelease(t *testing.T) {
	player := NewPlayer(&fakeSink{}, zaptest.NewLogger(t))
	h, _ := player.Play(context.Background(), []byte{1})

	player.Release(context.Background())

	status, err := h.Wait(context.Background())
	if err != nil || status != entities.PlaybackReleased {
		t.Errorf("Expected released without error, got %s %v", status, err)
	}
}
