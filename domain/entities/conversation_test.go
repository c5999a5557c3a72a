package entities

import (
	"errors"
	"testing"
)

func TestBeginTurnAppendsUserAndPlaceholder(t *testing.T) {
	log := NewConversationLog()

	if err := log.BeginTurn("t1", "Plan a day in Central"); err != nil {
		t.Fatalf("BeginTurn() error = %v", err)
	}

	turns := log.Turns()
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != TurnRoleUser || turns[0].Content != "Plan a day in Central" {
		t.Errorf("Unexpected user turn: %+v", turns[0])
	}
	if turns[1].Role != TurnRoleBot || !turns[1].Pending || turns[1].Content != ThinkingPlaceholder {
		t.Errorf("Unexpected placeholder: %+v", turns[1])
	}
}

func TestBeginTurnRejectsDuplicateID(t *testing.T) {
	log := NewConversationLog()
	_ = log.BeginTurn("t1", "hello")

	if err := log.BeginTurn("t1", "again"); !errors.Is(err, ErrDuplicateTurn) {
		t.Errorf("Expected ErrDuplicateTurn, got %v", err)
	}
	if log.Len() != 2 {
		t.Errorf("Expected log to stay at 2 entries, got %d", log.Len())
	}
}

func TestResolvePlaceholderByKey(t *testing.T) {
	log := NewConversationLog()
	_ = log.BeginTurn("t1", "first")
	_ = log.BeginTurn("t2", "second")

	// Resolving the older turn must not touch the newest entry.
	if err := log.ResolvePlaceholder("t1", "reply one"); err != nil {
		t.Fatalf("ResolvePlaceholder() error = %v", err)
	}

	turns := log.Turns()
	if turns[1].Content != "reply one" || turns[1].Pending {
		t.Errorf("Expected t1 placeholder resolved, got %+v", turns[1])
	}
	if !turns[3].Pending {
		t.Errorf("Expected t2 placeholder untouched, got %+v", turns[3])
	}
}

func TestResolvePlaceholderOnlyOnce(t *testing.T) {
	log := NewConversationLog()
	_ = log.BeginTurn("t1", "hi")

	if err := log.ResolvePlaceholder("t1", "R"); err != nil {
		t.Fatalf("ResolvePlaceholder() error = %v", err)
	}
	if err := log.ResolvePlaceholder("t1", "R2"); !errors.Is(err, ErrPlaceholderNotFound) {
		t.Errorf("Expected ErrPlaceholderNotFound, got %v", err)
	}

	last, _ := log.Last()
	if last.Content != "R" {
		t.Errorf("Expected content R, got %s", last.Content)
	}
}

func TestSetAudioStatusKeepsContent(t *testing.T) {
	log := NewConversationLog()
	_ = log.BeginTurn("t1", "hi")

	if log.SetAudioStatus("t1", AudioStatusPreparing) {
		t.Error("Expected audio status to be rejected while placeholder is pending")
	}

	_ = log.ResolvePlaceholder("t1", "reply")
	if !log.SetAudioStatus("t1", AudioStatusPreparing) {
		t.Fatal("Expected audio status to be set")
	}

	last, _ := log.Last()
	if last.Content != "reply" {
		t.Errorf("Expected content unchanged, got %s", last.Content)
	}
	if last.Audio != AudioStatusPreparing {
		t.Errorf("Expected audio preparing, got %s", last.Audio)
	}
}

func TestExchangesSkipsPendingAndExcluded(t *testing.T) {
	log := NewConversationLog()
	_ = log.BeginTurn("t1", "one")
	_ = log.ResolvePlaceholder("t1", "r1")
	_ = log.BeginTurn("t2", "two")
	_ = log.ResolvePlaceholder("t2", "r2")
	_ = log.BeginTurn("t3", "three")

	pairs := log.Exchanges("t2")
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 exchange, got %d", len(pairs))
	}
	if pairs[0][0].Content != "one" || pairs[0][1].Content != "r1" {
		t.Errorf("Unexpected exchange: %+v", pairs[0])
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	log := NewConversationLog()
	_ = log.BeginTurn("t1", "hi")

	turns := log.Turns()
	turns[0].Content = "mutated"

	if log.Turns()[0].Content != "hi" {
		t.Error("Expected log to be isolated from returned slice")
	}
}
