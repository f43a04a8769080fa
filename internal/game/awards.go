package game

import "fmt"

// AwardAssignment pairs an award with the character that earned it.
type AwardAssignment struct {
	BotLabel string `json:"botLabel"`
	Award    Award  `json:"award"`
}

// DetectAwards runs the fixed battery of pattern checks over the rankings
// and the raw vote history. Each check is independent; the final pass
// collapses duplicate (character, award) pairs. Requires at least two ranked
// characters, otherwise every award would be trivially "won".
func DetectAwards(s *Session, rankings []FinalRanking) []AwardAssignment {
	var results []AwardAssignment
	if len(rankings) < 2 {
		return results
	}

	topCoherence := rankings[0]
	for _, r := range rankings[1:] {
		if betterBy(r, topCoherence, func(x FinalRanking) int { return x.CoherenceScore }) {
			topCoherence = r
		}
	}
	results = append(results, AwardAssignment{
		BotLabel: topCoherence.BotLabel,
		Award: Award{
			ID:          "most-coherent",
			Label:       "Most Coherent",
			Description: fmt.Sprintf("Highest AI coherence score: %d/30", topCoherence.CoherenceScore),
		},
	})

	topAudience := rankings[0]
	for _, r := range rankings[1:] {
		if betterBy(r, topAudience, func(x FinalRanking) int { return x.ApprovalPercent }) {
			topAudience = r
		}
	}
	results = append(results, AwardAssignment{
		BotLabel: topAudience.BotLabel,
		Award: Award{
			ID:          "audience-favorite",
			Label:       "Audience Favorite",
			Description: fmt.Sprintf("%d%% approval rating", topAudience.ApprovalPercent),
		},
	})

	// Unanimous: one character leading both metrics holds a single collapsed
	// award instead of stacking the two above.
	if topCoherence.BotLabel == topAudience.BotLabel {
		unanimous := Award{
			ID:          "unanimous",
			Label:       "Unanimous",
			Description: "The machine and the crowd agree",
		}
		filtered := results[:0]
		for _, r := range results {
			if r.BotLabel == topCoherence.BotLabel && (r.Award.ID == "most-coherent" || r.Award.ID == "audience-favorite") {
				continue
			}
			filtered = append(filtered, r)
		}
		results = append(filtered, AwardAssignment{BotLabel: topCoherence.BotLabel, Award: unanimous})
	}

	// Biggest Gap: coherence rank and audience rank diverge by >= 2.
	var gapWinner *FinalRanking
	gapSize := 0
	for i, r := range rankings {
		gap := r.CoherenceRank - r.AudienceRank
		if gap < 0 {
			gap = -gap
		}
		if gap > gapSize {
			gapSize = gap
			gapWinner = &rankings[i]
		}
	}
	if gapWinner != nil && gapSize >= 2 {
		desc := "The machine's favorite, ignored by the crowd"
		if gapWinner.AudienceRank < gapWinner.CoherenceRank {
			desc = "Loved by humans, doubted by the machine"
		}
		results = append(results, AwardAssignment{
			BotLabel: gapWinner.BotLabel,
			Award:    Award{ID: "biggest-gap", Label: "Biggest Gap", Description: desc},
		})
	}

	// Scene Stealer: plurality of yes votes in at least 2 task rounds. Ties
	// for a round all count as wins.
	taskWins := make(map[string]int)
	for t := 0; t < TaskCount; t++ {
		counts := VoteCountsForTask(s, t)
		maxYes := 0
		for _, n := range counts {
			if n > maxYes {
				maxYes = n
			}
		}
		if maxYes == 0 {
			continue
		}
		for label, n := range counts {
			if n == maxYes {
				taskWins[label]++
			}
		}
	}
	stealer, stealerWins := "", 0
	for label, wins := range taskWins {
		if wins > stealerWins || (wins == stealerWins && label < stealer) {
			stealer, stealerWins = label, wins
		}
	}
	if stealerWins >= 2 {
		results = append(results, AwardAssignment{
			BotLabel: stealer,
			Award: Award{
				ID:          "scene-stealer",
				Label:       "Scene Stealer",
				Description: fmt.Sprintf("Won %d individual task rounds", stealerWins),
			},
		})
	}

	// The Rock: flattest yes-per-task curve. Variance comparison is
	// meaningless with 2 or fewer data points, so it needs > 2 characters
	// with audience data.
	withAudience := make([]*CharacterWithAudition, 0, len(s.Characters))
	for _, c := range s.Characters {
		if c.AudienceScore != nil {
			withAudience = append(withAudience, c)
		}
	}
	if len(withAudience) > 2 {
		rock, rockVar := "", 0.0
		for _, c := range withAudience {
			v := variance(c.AudienceScore.YesPerTask)
			if rock == "" || v < rockVar || (v == rockVar && c.BotLabel < rock) {
				rock, rockVar = c.BotLabel, v
			}
		}
		results = append(results, AwardAssignment{
			BotLabel: rock,
			Award: Award{
				ID:          "the-rock",
				Label:       "The Rock",
				Description: "Most consistent approval across all 6 tasks",
			},
		})
	}

	// Comeback Kid: strictly more yes votes in the last two tasks than the
	// first two, largest positive swing wins.
	kid, kidSwing := "", 0
	for _, c := range withAudience {
		ypt := c.AudienceScore.YesPerTask
		if len(ypt) < TaskCount {
			continue
		}
		early := ypt[0] + ypt[1]
		late := ypt[4] + ypt[5]
		swing := late - early
		if swing > kidSwing || (swing == kidSwing && swing > 0 && c.BotLabel < kid) {
			kid, kidSwing = c.BotLabel, swing
		}
	}
	if kidSwing > 0 {
		results = append(results, AwardAssignment{
			BotLabel: kid,
			Award: Award{
				ID:          "comeback-kid",
				Label:       "Comeback Kid",
				Description: "Started quiet, ended strong",
			},
		})
	}

	// Gloucester's Favorite: plurality on the final task, the Lear retelling.
	finalCounts := VoteCountsForTask(s, TaskCount-1)
	fav, favYes := "", 0
	for label, n := range finalCounts {
		if n > favYes || (n == favYes && n > 0 && label < fav) {
			fav, favYes = label, n
		}
	}
	if favYes > 0 {
		results = append(results, AwardAssignment{
			BotLabel: fav,
			Award: Award{
				ID:          "gloucesters-favorite",
				Label:       "Gloucester's Favorite",
				Description: "Highest approval on the Lear retelling",
			},
		})
	}

	// Collapse duplicate (character, award) pairs; first assignment wins.
	seen := make(map[string]bool, len(results))
	deduped := results[:0]
	for _, r := range results {
		key := r.BotLabel + ":" + r.Award.ID
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}
	return deduped
}

// betterBy reports whether a beats b on the metric, bot label breaking ties
// so award selection is deterministic.
func betterBy(a, b FinalRanking, metric func(FinalRanking) int) bool {
	if metric(a) != metric(b) {
		return metric(a) > metric(b)
	}
	return a.BotLabel < b.BotLabel
}

func variance(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += float64(x)
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		d := float64(x) - mean
		v += d * d
	}
	return v / float64(len(xs))
}
