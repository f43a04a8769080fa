package game

import (
	"encoding/json"
	"reflect"
	"testing"
)

const evaluatorPayload = `{
  "overall": 24,
  "voice_integrity": {"score": 8, "comment": "voice held"},
  "behavioral_fidelity": {"score": 7, "comment": "moves surfaced"},
  "gloucester_depth": {"score": 9, "comment": "inner life revealed"},
  "through_line_analysis": "held together",
  "most_coherent_moment": "task 6",
  "weakest_moment": "task 2",
  "per_task_scores": [4, 3, 5, 4, 4, 5]
}`

func TestParseScoreResponse(t *testing.T) {
	score, err := ParseScoreResponse(evaluatorPayload)
	if err != nil {
		t.Fatalf("should parse valid payload: %v", err)
	}
	if score.Overall != 24 {
		t.Fatalf("expected overall 24, got %d", score.Overall)
	}
	if score.VoiceIntegrity.Score != 8 || score.VoiceIntegrity.Comment != "voice held" {
		t.Fatalf("unexpected voice integrity %+v", score.VoiceIntegrity)
	}
	if len(score.PerTaskScores) != 6 {
		t.Fatalf("expected 6 per-task scores, got %d", len(score.PerTaskScores))
	}
}

func TestParseScoreResponseStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + evaluatorPayload + "\n```"
	score, err := ParseScoreResponse(fenced)
	if err != nil {
		t.Fatalf("should parse fenced payload: %v", err)
	}
	if score.Overall != 24 {
		t.Fatalf("expected overall 24, got %d", score.Overall)
	}
}

func TestParseScoreResponseClampsOutOfRange(t *testing.T) {
	raw := `{
	  "overall": 99,
	  "voice_integrity": {"score": -3, "comment": ""},
	  "behavioral_fidelity": {"score": 200, "comment": ""},
	  "gloucester_depth": {"score": 0, "comment": ""},
	  "through_line_analysis": "",
	  "most_coherent_moment": "",
	  "weakest_moment": "",
	  "per_task_scores": [9, 0, 3, -1, 5, 6]
	}`
	score, err := ParseScoreResponse(raw)
	if err != nil {
		t.Fatalf("should parse: %v", err)
	}
	if score.Overall != 30 {
		t.Fatalf("overall should clamp to 30, got %d", score.Overall)
	}
	if score.VoiceIntegrity.Score != 1 {
		t.Fatalf("voice integrity should clamp to 1, got %d", score.VoiceIntegrity.Score)
	}
	if score.BehavioralFidelity.Score != 10 {
		t.Fatalf("behavioral fidelity should clamp to 10, got %d", score.BehavioralFidelity.Score)
	}
	want := []int{5, 1, 3, 1, 5, 5}
	if !reflect.DeepEqual(score.PerTaskScores, want) {
		t.Fatalf("per-task scores should clamp to %v, got %v", want, score.PerTaskScores)
	}

	// Clamping an already-clamped score is a no-op.
	data, _ := json.Marshal(map[string]any{
		"overall":             score.Overall,
		"voice_integrity":     map[string]any{"score": score.VoiceIntegrity.Score, "comment": ""},
		"behavioral_fidelity": map[string]any{"score": score.BehavioralFidelity.Score, "comment": ""},
		"gloucester_depth":    map[string]any{"score": score.GloucesterDepth.Score, "comment": ""},
	})
	again, err := ParseScoreResponse(string(data))
	if err != nil {
		t.Fatalf("should reparse: %v", err)
	}
	if again.Overall != score.Overall || again.VoiceIntegrity.Score != score.VoiceIntegrity.Score {
		t.Fatal("clamping must be idempotent")
	}
}

func TestParseScoreResponseGarbage(t *testing.T) {
	if _, err := ParseScoreResponse("the character was great, 10/10"); err == nil {
		t.Fatal("non-JSON payload must return an error, not panic")
	}
}

// resultsSession builds a completed-session snapshot by hand: characters with
// labels, scores, and a full vote history.
func resultsSession() *Session {
	s := &Session{
		Code:   "TEST",
		Status: StatusResults,
		Players: []*Player{
			{ID: "p1", Name: "Alice"},
			{ID: "p2", Name: "Bob"},
			{ID: "p3", Name: "Carol"},
		},
		Settings: SessionSettings{MaxPlayers: 12},
	}
	s.Characters = []*CharacterWithAudition{
		{CharacterSheet: CharacterSheet{Name: "Rust"}, PlayerID: "p1", BotLabel: "Bot A", CoherenceScore: &CoherenceScore{Overall: 28}},
		{CharacterSheet: CharacterSheet{Name: "Fern"}, PlayerID: "p2", BotLabel: "Bot B", CoherenceScore: &CoherenceScore{Overall: 15}},
		{CharacterSheet: CharacterSheet{Name: "Moss"}, PlayerID: "p3", BotLabel: "Bot C", CoherenceScore: &CoherenceScore{Overall: 22}},
	}
	// Bot B sweeps the audience; Bot A impresses the machine.
	for task := 0; task < TaskCount; task++ {
		s.Votes = append(s.Votes,
			Vote{PlayerID: "p1", TaskIndex: task, BotLabel: "Bot B", Approval: true},
			Vote{PlayerID: "p3", TaskIndex: task, BotLabel: "Bot B", Approval: true},
			Vote{PlayerID: "p2", TaskIndex: task, BotLabel: "Bot A", Approval: task%2 == 0},
			Vote{PlayerID: "p1", TaskIndex: task, BotLabel: "Bot C", Approval: task >= 4},
		)
	}
	return s
}

func TestComputeAudienceScores(t *testing.T) {
	s := resultsSession()
	ComputeAudienceScores(s)

	b := s.FindCharacterByLabel("Bot B").AudienceScore
	if b == nil {
		t.Fatal("audience score should be cached on the character")
	}
	if b.YesVotes != 12 || b.TotalVotes != 12 {
		t.Fatalf("Bot B should have 12/12 yes votes, got %d/%d", b.YesVotes, b.TotalVotes)
	}
	if b.ApprovalPercent != 100 {
		t.Fatalf("Bot B approval should be 100, got %d", b.ApprovalPercent)
	}

	a := s.FindCharacterByLabel("Bot A").AudienceScore
	if a.YesVotes != 3 || a.TotalVotes != 6 {
		t.Fatalf("Bot A should have 3/6 yes votes, got %d/%d", a.YesVotes, a.TotalVotes)
	}
	if a.ApprovalPercent != 50 {
		t.Fatalf("Bot A approval should be 50, got %d", a.ApprovalPercent)
	}
}

func TestComputeRankingsExcludesUnscored(t *testing.T) {
	s := resultsSession()
	// Two more characters that were never evaluated.
	s.Characters = append(s.Characters,
		&CharacterWithAudition{CharacterSheet: CharacterSheet{Name: "Ash"}, PlayerID: "p4", BotLabel: "Bot D"},
		&CharacterWithAudition{CharacterSheet: CharacterSheet{Name: "Kit"}, PlayerID: "p5", BotLabel: "Bot E"},
	)

	rankings := ComputeRankings(s)
	if len(rankings) != 3 {
		t.Fatalf("expected 3 ranked characters, got %d", len(rankings))
	}
	for _, r := range rankings {
		if r.BotLabel == "Bot D" || r.BotLabel == "Bot E" {
			t.Fatalf("unscored character %s must not be ranked", r.BotLabel)
		}
	}
}

func TestComputeRankingsOrdering(t *testing.T) {
	s := resultsSession()
	rankings := ComputeRankings(s)

	// Coherence ranks: A=1, C=2, B=3. Audience ranks (yes votes): B=1, A=2,
	// C=3. Combined: A=1.5, B=2.0, C=2.5.
	if rankings[0].BotLabel != "Bot A" || rankings[1].BotLabel != "Bot B" || rankings[2].BotLabel != "Bot C" {
		t.Fatalf("unexpected order: %s, %s, %s", rankings[0].BotLabel, rankings[1].BotLabel, rankings[2].BotLabel)
	}
	if rankings[0].PlayerName != "Alice" {
		t.Fatalf("ranking should resolve player names, got %q", rankings[0].PlayerName)
	}
	if rankings[0].CombinedRank != 1.5 {
		t.Fatalf("expected combined rank 1.5, got %v", rankings[0].CombinedRank)
	}
}

func TestComputeRankingsDeterministic(t *testing.T) {
	s1 := resultsSession()
	s2 := resultsSession()
	r1 := ComputeRankings(s1)
	r2 := ComputeRankings(s2)
	if !reflect.DeepEqual(r1, r2) {
		t.Fatalf("rankings must be deterministic for a fixed snapshot:\n%+v\n%+v", r1, r2)
	}
}

func TestVoteCountsForTask(t *testing.T) {
	s := resultsSession()
	counts := VoteCountsForTask(s, 0)
	if counts["Bot B"] != 2 {
		t.Fatalf("Bot B should have 2 yes votes in task 0, got %d", counts["Bot B"])
	}
	if counts["Bot C"] != 0 {
		t.Fatalf("Bot C should have 0 yes votes in task 0, got %d", counts["Bot C"])
	}
	if got := VotesSubmittedForTask(s, 0); got != 4 {
		t.Fatalf("expected 4 ballots in task 0, got %d", got)
	}
}
