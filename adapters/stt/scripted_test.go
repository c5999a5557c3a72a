package stt

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/repositories"
)

func TestScriptedCapture_FromText(t *testing.T) {
	capture := NewScriptedCaptureFromText("Plan a day in Central", 0, zaptest.NewLogger(t))

	events, err := capture.Start(context.Background(), "en-US")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = capture.Feed([]byte{1, 2, 3, 4})
	if capture.BytesFed() != 4 {
		t.Errorf("Expected 4 bytes fed, got %d", capture.BytesFed())
	}

	// Partials are available before release.
	first := <-events
	if first.Kind != repositories.CapturePartial || first.Text != "Plan" {
		t.Errorf("Unexpected first event %+v", first)
	}

	_ = capture.Stop()
	got := collect(t, events)
	last := got[len(got)-1]
	if last.Kind != repositories.CaptureFinal || last.Text != "Plan a day in Central" {
		t.Errorf("Expected final event last, got %+v", last)
	}
	if capture.Recording() {
		t.Error("Expected recording indicator off")
	}
}

func TestScriptedCapture_ScriptedError(t *testing.T) {
	capture := NewScriptedCapture([]repositories.CaptureEvent{
		{Kind: repositories.CapturePartial, Text: "hel"},
		{Kind: repositories.CaptureError, Reason: "network"},
	}, 0, zaptest.NewLogger(t))

	events, _ := capture.Start(context.Background(), "")
	got := collect(t, events)

	if len(got) != 2 || got[1].Kind != repositories.CaptureError {
		t.Errorf("Unexpected events %+v", got)
	}
	if err := capture.Stop(); err != nil {
		t.Errorf("Expected Stop after engine end to be a no-op, got %v", err)
	}
}

func TestScriptedCapture_StopWithoutStart(t *testing.T) {
	capture := NewScriptedCapture(nil, 0, zaptest.NewLogger(t))
	if err := capture.Stop(); err != nil {
		t.Errorf("Expected no-op, got %v", err)
	}
}

func TestScriptedCapture_AlreadyRecording(t *testing.T) {
	capture := NewScriptedCapture(nil, 0, zaptest.NewLogger(t))
	events, _ := capture.Start(context.Background(), "")

	if _, err := capture.Start(context.Background(), ""); !errors.Is(err, domain.ErrAlreadyRecording) {
		t.Errorf("Expected ErrAlreadyRecording, got %v", err)
	}

	_ = capture.Stop()
	got := collect(t, events)
	if len(got) != 1 || got[0].Kind != repositories.CaptureEnded {
		t.Errorf("Expected a single ended event, got %+v", got)
	}
}

func TestUnavailableCapture(t *testing.T) {
	capture := NewUnavailableCapture(zaptest.NewLogger(t))
	if _, err := capture.Start(context.Background(), ""); !errors.Is(err, domain.ErrCaptureUnavailable) {
		t.Errorf("Expected ErrCaptureUnavailable, got %v", err)
	}
}
