package game

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// rawScore is the evaluator's wire schema. The evaluator is untrusted input:
// every numeric field is re-clamped before use.
type rawScore struct {
	Overall        float64 `json:"overall"`
	VoiceIntegrity struct {
		Score   float64 `json:"score"`
		Comment string  `json:"comment"`
	} `json:"voice_integrity"`
	BehavioralFidelity struct {
		Score   float64 `json:"score"`
		Comment string  `json:"comment"`
	} `json:"behavioral_fidelity"`
	GloucesterDepth struct {
		Score   float64 `json:"score"`
		Comment string  `json:"comment"`
	} `json:"gloucester_depth"`
	ThroughLineAnalysis string    `json:"through_line_analysis"`
	MostCoherentMoment  string    `json:"most_coherent_moment"`
	WeakestMoment       string    `json:"weakest_moment"`
	PerTaskScores       []float64 `json:"per_task_scores"`
}

func clamp(value float64, min, max int) int {
	v := int(math.Round(value))
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ParseScoreResponse turns a raw evaluator payload into a CoherenceScore.
// Code fences are stripped, the JSON is decoded strictly, and every numeric
// field is clamped to its documented range: overall 1-30, sub-scores 1-10,
// per-task scores 1-5. Clamping is idempotent.
func ParseScoreResponse(raw string) (*CoherenceScore, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var parsed rawScore
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, err
	}

	score := &CoherenceScore{
		Overall:             clamp(parsed.Overall, 1, 30),
		VoiceIntegrity:      SubScore{Score: clamp(parsed.VoiceIntegrity.Score, 1, 10), Comment: parsed.VoiceIntegrity.Comment},
		BehavioralFidelity:  SubScore{Score: clamp(parsed.BehavioralFidelity.Score, 1, 10), Comment: parsed.BehavioralFidelity.Comment},
		GloucesterDepth:     SubScore{Score: clamp(parsed.GloucesterDepth.Score, 1, 10), Comment: parsed.GloucesterDepth.Comment},
		ThroughLineAnalysis: parsed.ThroughLineAnalysis,
		MostCoherentMoment:  parsed.MostCoherentMoment,
		WeakestMoment:       parsed.WeakestMoment,
	}
	if parsed.PerTaskScores != nil {
		score.PerTaskScores = make([]int, len(parsed.PerTaskScores))
		for i, s := range parsed.PerTaskScores {
			score.PerTaskScores[i] = clamp(s, 1, 5)
		}
	}
	return score, nil
}

// ComputeAudienceScores derives every character's approval tally from the
// votes array. The result depends on nothing but that character's votes, so
// recomputing is always safe; scores are cached on the character records.
func ComputeAudienceScores(s *Session) {
	for _, c := range s.Characters {
		yesPerTask := make([]int, TaskCount)
		yes, total := 0, 0
		for _, v := range s.Votes {
			if v.BotLabel != c.BotLabel {
				continue
			}
			total++
			if v.Approval {
				yes++
				if v.TaskIndex >= 0 && v.TaskIndex < TaskCount {
					yesPerTask[v.TaskIndex]++
				}
			}
		}
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(yes) / float64(total) * 100))
		}
		c.AudienceScore = &AudienceScore{
			YesPerTask:      yesPerTask,
			YesVotes:        yes,
			TotalVotes:      total,
			ApprovalPercent: pct,
		}
	}
}

// ComputeRankings builds the leaderboard: audience scores are derived from
// the vote history, characters without a coherence score are excluded
// (never evaluated means never ranked), and the rest are ordered by the
// average of their coherence rank and audience rank, ties broken by audience
// rank. Awards are attached per entry. Pure function of the session snapshot.
func ComputeRankings(s *Session) []FinalRanking {
	ComputeAudienceScores(s)

	scored := make([]*CharacterWithAudition, 0, len(s.Characters))
	for _, c := range s.Characters {
		if c.CoherenceScore != nil {
			scored = append(scored, c)
		}
	}

	coherenceRank := rankBy(scored, func(c *CharacterWithAudition) int { return c.CoherenceScore.Overall })
	audienceRank := rankBy(scored, func(c *CharacterWithAudition) int { return c.AudienceScore.YesVotes })

	rankings := make([]FinalRanking, 0, len(scored))
	for _, c := range scored {
		playerName := "Unknown"
		if p := s.FindPlayer(c.PlayerID); p != nil {
			playerName = p.Name
		}
		cRank := coherenceRank[c.BotLabel]
		aRank := audienceRank[c.BotLabel]
		rankings = append(rankings, FinalRanking{
			BotLabel:        c.BotLabel,
			CharacterName:   c.Name,
			PlayerName:      playerName,
			CoherenceScore:  c.CoherenceScore.Overall,
			CoherenceRank:   cRank,
			ApprovalPercent: c.AudienceScore.ApprovalPercent,
			AudienceRank:    aRank,
			CombinedRank:    float64(cRank+aRank) / 2,
			Awards:          []Award{},
		})
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].CombinedRank != rankings[j].CombinedRank {
			return rankings[i].CombinedRank < rankings[j].CombinedRank
		}
		if rankings[i].AudienceRank != rankings[j].AudienceRank {
			return rankings[i].AudienceRank < rankings[j].AudienceRank
		}
		return rankings[i].BotLabel < rankings[j].BotLabel
	})

	for _, a := range DetectAwards(s, rankings) {
		for i := range rankings {
			if rankings[i].BotLabel == a.BotLabel {
				rankings[i].Awards = append(rankings[i].Awards, a.Award)
			}
		}
	}

	return rankings
}

// rankBy assigns 1-based ordinal ranks by descending metric, with bot label
// as a deterministic tie-break.
func rankBy(chars []*CharacterWithAudition, metric func(*CharacterWithAudition) int) map[string]int {
	ordered := make([]*CharacterWithAudition, len(chars))
	copy(ordered, chars)
	sort.Slice(ordered, func(i, j int) bool {
		if metric(ordered[i]) != metric(ordered[j]) {
			return metric(ordered[i]) > metric(ordered[j])
		}
		return ordered[i].BotLabel < ordered[j].BotLabel
	})
	ranks := make(map[string]int, len(ordered))
	for i, c := range ordered {
		ranks[c.BotLabel] = i + 1
	}
	return ranks
}

// VoteCountsForTask returns yes-vote counts per bot label for one task round.
func VoteCountsForTask(s *Session, taskIndex int) map[string]int {
	counts := make(map[string]int, len(s.Characters))
	for _, c := range s.Characters {
		counts[c.BotLabel] = 0
	}
	for _, v := range s.Votes {
		if v.TaskIndex == taskIndex && v.Approval {
			counts[v.BotLabel]++
		}
	}
	return counts
}

// VotesSubmittedForTask counts all ballots (yes and no) cast in a task round.
func VotesSubmittedForTask(s *Session, taskIndex int) int {
	n := 0
	for _, v := range s.Votes {
		if v.TaskIndex == taskIndex {
			n++
		}
	}
	return n
}
