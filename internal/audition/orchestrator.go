// Package audition drives every character through the six scenario
// generations and one scoring call, then moves the session into the
// presenting phase. Failure policy is degrade, never abort: a broken
// generation becomes a placeholder, a broken scoring call leaves the
// character unscored; the session always reaches the voting rounds.
package audition

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"botcast/internal/ai"
	"botcast/internal/game"
	"botcast/internal/prompts"
)

// Placeholder substitutes a failed task generation so one broken dialogue
// never blocks the rest of the audition.
const Placeholder = "[Technical difficulties — response unavailable]"

const defaultBatchSize = 3

// Orchestrator runs auditions for one server. Safe for concurrent sessions.
type Orchestrator struct {
	manager   *game.Manager
	provider  ai.Provider
	model     string
	batchSize int
}

func New(manager *game.Manager, provider ai.Provider, model string, batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Orchestrator{manager: manager, provider: provider, model: model, batchSize: batchSize}
}

// Run executes the full audition for a session that just entered the
// auditioning phase. Characters are processed in fixed-size batches to cap
// simultaneous generation calls; within a character the six tasks run
// concurrently. Progress counts one unit per task generation plus one
// scoring unit per character. When every character has been handled the
// session is moved to presenting unconditionally, scoreless characters
// included.
func (o *Orchestrator) Run(ctx context.Context, code string) {
	s, err := o.manager.GetSession(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("audition: session vanished before start")
		return
	}

	characters := s.Characters
	total := len(characters)*game.TaskCount + len(characters)
	var completed atomic.Int64

	if err := o.manager.SetAuditionProgress(ctx, code, 0, total); err != nil {
		log.Error().Err(err).Str("code", code).Msg("audition: progress init failed")
	}

	for start := 0; start < len(characters); start += o.batchSize {
		end := start + o.batchSize
		if end > len(characters) {
			end = len(characters)
		}
		var wg sync.WaitGroup
		for _, char := range characters[start:end] {
			wg.Add(1)
			go func(char *game.CharacterWithAudition) {
				defer wg.Done()
				o.auditionCharacter(ctx, code, char, &completed, total)
			}(char)
		}
		wg.Wait()
	}

	for _, char := range characters {
		o.scoreCharacter(ctx, code, char)
		completed.Add(1)
		o.reportProgress(ctx, code, int(completed.Load()), total)
	}

	if err := o.manager.SetStatus(ctx, code, game.StatusPresenting); err != nil {
		log.Error().Err(err).Str("code", code).Msg("audition: final phase transition failed")
		return
	}
	log.Info().Str("code", code).Int("characters", len(characters)).Msg("audition complete")
}

// auditionCharacter generates all six dialogues for one character. Tasks run
// concurrently; each failure is replaced with the placeholder locally.
func (o *Orchestrator) auditionCharacter(ctx context.Context, code string, char *game.CharacterWithAudition, completed *atomic.Int64, total int) {
	responses := make(map[game.TaskType]string, game.TaskCount)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, task := range game.TaskOrder {
		wg.Add(1)
		go func(task game.TaskType) {
			defer wg.Done()
			text, err := o.provider.Complete(ctx, prompts.System(char.CharacterSheet), prompts.Task(char.CharacterSheet, task), ai.Params{
				Model:       o.model,
				MaxTokens:   4096,
				Temperature: 1.0,
			})
			if err != nil {
				log.Error().Err(err).Str("code", code).Str("character", char.Name).Str("task", string(task)).Msg("task generation failed")
				text = Placeholder
			}
			mu.Lock()
			responses[task] = text
			mu.Unlock()
			completed.Add(1)
			o.reportProgress(ctx, code, int(completed.Load()), total)
		}(task)
	}
	wg.Wait()

	if err := o.manager.SetCharacterResponses(ctx, code, char.PlayerID, responses); err != nil {
		log.Error().Err(err).Str("code", code).Str("character", char.Name).Msg("storing responses failed")
	}
}

// scoreCharacter evaluates coherence from the freshest persisted responses,
// not the possibly stale in-memory record. Characters without exactly six
// responses are skipped; so are parse and generation failures. Either way
// the character simply ends up unscored.
func (o *Orchestrator) scoreCharacter(ctx context.Context, code string, char *game.CharacterWithAudition) {
	fresh, err := o.manager.GetSession(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("scoring: session read failed")
		return
	}
	freshChar := fresh.FindCharacterByPlayer(char.PlayerID)
	if freshChar == nil || len(freshChar.Responses) != game.TaskCount {
		log.Warn().Str("code", code).Str("character", char.Name).Msg("scoring skipped: incomplete responses")
		return
	}

	raw, err := o.provider.Complete(ctx, "", prompts.Scoring(freshChar.CharacterSheet, freshChar.Responses), ai.Params{
		Model:       o.model,
		MaxTokens:   2048,
		Temperature: 0.3,
	})
	if err != nil {
		log.Error().Err(err).Str("code", code).Str("character", char.Name).Msg("scoring call failed")
		return
	}
	score, err := game.ParseScoreResponse(raw)
	if err != nil {
		log.Error().Err(err).Str("code", code).Str("character", char.Name).Msg("scoring payload unparsable")
		return
	}
	if err := o.manager.SetCharacterScore(ctx, code, char.PlayerID, score); err != nil {
		log.Error().Err(err).Str("code", code).Str("character", char.Name).Msg("storing score failed")
	}
}

func (o *Orchestrator) reportProgress(ctx context.Context, code string, completed, total int) {
	if err := o.manager.SetAuditionProgress(ctx, code, completed, total); err != nil {
		log.Error().Err(err).Str("code", code).Msg("progress update failed")
	}
}
