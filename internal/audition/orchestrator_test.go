package audition

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"botcast/internal/ai"
	"botcast/internal/game"
	"botcast/internal/store"
)

const goodScorePayload = `{
  "overall": 21,
  "voice_integrity": {"score": 7, "comment": "held"},
  "behavioral_fidelity": {"score": 7, "comment": "held"},
  "gloucester_depth": {"score": 7, "comment": "held"},
  "through_line_analysis": "fine",
  "most_coherent_moment": "task 1",
  "weakest_moment": "task 3",
  "per_task_scores": [4, 4, 4, 4, 4, 4]
}`

// fakeProvider scripts completions. Scoring calls are recognized by their
// empty system prompt, task calls by the scenario text.
type fakeProvider struct {
	calls        atomic.Int64
	failTask     string
	failScoreFor string
	scorePayload string
}

func (f *fakeProvider) Complete(_ context.Context, systemPrompt, userPrompt string, _ ai.Params) (string, error) {
	f.calls.Add(1)
	if systemPrompt == "" {
		if f.failScoreFor != "" && strings.Contains(userPrompt, "Name: "+f.failScoreFor) {
			return "", errors.New("evaluator down")
		}
		payload := f.scorePayload
		if payload == "" {
			payload = goodScorePayload
		}
		return payload, nil
	}
	if f.failTask != "" && strings.Contains(userPrompt, f.failTask) {
		return "", errors.New("generation down")
	}
	return "USER: hello\nBOT: hello back", nil
}

func (f *fakeProvider) GenerateImage(_ context.Context, _ string) (string, error) {
	return "https://example.com/avatar.png", nil
}

func buildAuditioningSession(t *testing.T, m *game.Manager, players int) (string, []string) {
	t.Helper()
	ctx := context.Background()
	code, hostID, err := m.CreateSession(ctx, game.SessionSettings{MaxPlayers: 12})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ids := make([]string, 0, players)
	for i := 0; i < players; i++ {
		id, err := m.Join(ctx, code, "Player"+string(rune('A'+i)))
		if err != nil {
			t.Fatalf("join: %v", err)
		}
		ids = append(ids, id)
	}
	if _, err := m.AdvancePhase(ctx, code, hostID); err != nil {
		t.Fatalf("advance to creating: %v", err)
	}
	for i, pid := range ids {
		cs := game.CharacterSheet{
			Name:            "Char" + string(rune('A'+i)),
			Backstory:       "b",
			Desire:          "d",
			Fear:            "f",
			Status:          "equal",
			VoiceSoundsLike: "v",
			VoiceNeverLike:  "n",
			SignatureMoves:  []string{"m"},
			ForbiddenMoves:  "x",
			InnerLife:       "i",
			OuterLife:       "o",
		}
		if err := m.SubmitCharacter(ctx, code, pid, cs); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if _, err := m.AdvancePhase(ctx, code, hostID); err != nil {
		t.Fatalf("advance to auditioning: %v", err)
	}
	return code, ids
}

func TestRunCompletesAudition(t *testing.T) {
	m := game.NewManager(store.NewMemory(), 2*time.Hour)
	provider := &fakeProvider{}
	o := New(m, provider, "test-model", 2)

	code, ids := buildAuditioningSession(t, m, 3)
	o.Run(context.Background(), code)

	s, err := m.GetSession(context.Background(), code)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Status != game.StatusPresenting {
		t.Fatalf("expected presenting after audition, got %s", s.Status)
	}
	if s.CurrentTask != 0 {
		t.Fatalf("presenting should start at task 0, got %d", s.CurrentTask)
	}
	for _, pid := range ids {
		c := s.FindCharacterByPlayer(pid)
		if len(c.Responses) != game.TaskCount {
			t.Fatalf("character %s has %d responses, want %d", c.Name, len(c.Responses), game.TaskCount)
		}
		if c.CoherenceScore == nil {
			t.Fatalf("character %s should be scored", c.Name)
		}
		if c.CoherenceScore.Overall != 21 {
			t.Fatalf("expected overall 21, got %d", c.CoherenceScore.Overall)
		}
	}
	// 6 generation units + 1 scoring unit per character.
	wantTotal := 3*game.TaskCount + 3
	if s.AuditionProgress == nil || s.AuditionProgress.Total != wantTotal {
		t.Fatalf("expected progress total %d, got %+v", wantTotal, s.AuditionProgress)
	}
	if s.AuditionProgress.Completed != wantTotal {
		t.Fatalf("expected progress complete at %d, got %d", wantTotal, s.AuditionProgress.Completed)
	}
}

func TestRunSubstitutesPlaceholderOnTaskFailure(t *testing.T) {
	m := game.NewManager(store.NewMemory(), 2*time.Hour)
	// The correction scenario mentions wire transfers; fail exactly that call.
	provider := &fakeProvider{failTask: "wire transfers"}
	o := New(m, provider, "test-model", 3)

	code, ids := buildAuditioningSession(t, m, 2)
	o.Run(context.Background(), code)

	s, _ := m.GetSession(context.Background(), code)
	if s.Status != game.StatusPresenting {
		t.Fatalf("a failed task must not block the session, got %s", s.Status)
	}
	for _, pid := range ids {
		c := s.FindCharacterByPlayer(pid)
		if c.Responses[game.TaskCorrection] != Placeholder {
			t.Fatalf("expected placeholder for the correction task, got %q", c.Responses[game.TaskCorrection])
		}
		if c.Responses[game.TaskGreeting] == Placeholder {
			t.Fatal("healthy tasks must keep their generated text")
		}
		// All six responses are present, so scoring still ran.
		if c.CoherenceScore == nil {
			t.Fatalf("character %s should still be scored", c.Name)
		}
	}
}

func TestRunToleratesScoringFailure(t *testing.T) {
	m := game.NewManager(store.NewMemory(), 2*time.Hour)
	provider := &fakeProvider{failScoreFor: "CharA"}
	o := New(m, provider, "test-model", 3)

	code, ids := buildAuditioningSession(t, m, 2)
	o.Run(context.Background(), code)

	s, _ := m.GetSession(context.Background(), code)
	if s.Status != game.StatusPresenting {
		t.Fatalf("a failed scoring call must not block the session, got %s", s.Status)
	}
	var scored, unscored *game.CharacterWithAudition
	for _, pid := range ids {
		c := s.FindCharacterByPlayer(pid)
		if c.CoherenceScore == nil {
			unscored = c
		} else {
			scored = c
		}
	}
	if unscored == nil || unscored.Name != "CharA" {
		t.Fatal("CharA should be left without a score")
	}
	if scored == nil {
		t.Fatal("the other character should still be scored")
	}

	// The ranking step excludes the scoreless character instead of crashing.
	rankings := game.ComputeRankings(s)
	if len(rankings) != 1 {
		t.Fatalf("expected 1 ranked character, got %d", len(rankings))
	}
	if rankings[0].BotLabel != scored.BotLabel {
		t.Fatalf("expected %s ranked, got %s", scored.BotLabel, rankings[0].BotLabel)
	}
}

func TestRunToleratesUnparsableScorePayload(t *testing.T) {
	m := game.NewManager(store.NewMemory(), 2*time.Hour)
	provider := &fakeProvider{scorePayload: "I give them a solid seven."}
	o := New(m, provider, "test-model", 3)

	code, ids := buildAuditioningSession(t, m, 2)
	o.Run(context.Background(), code)

	s, _ := m.GetSession(context.Background(), code)
	if s.Status != game.StatusPresenting {
		t.Fatalf("an unparsable payload must not block the session, got %s", s.Status)
	}
	for _, pid := range ids {
		if c := s.FindCharacterByPlayer(pid); c.CoherenceScore != nil {
			t.Fatalf("character %s must stay unscored on parse failure", c.Name)
		}
	}
}
