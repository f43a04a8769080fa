package game

import (
	"time"
)

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusLobby       Status = "lobby"
	StatusCreating    Status = "creating"
	StatusAuditioning Status = "auditioning"
	StatusPresenting  Status = "presenting"
	StatusVoting      Status = "voting"
	StatusResults     Status = "results"
)

// TaskType identifies one of the six fixed audition scenarios.
type TaskType string

const (
	TaskGreeting    TaskType = "greeting"
	TaskUncertainty TaskType = "uncertainty"
	TaskCorrection  TaskType = "correction"
	TaskRefusal     TaskType = "refusal"
	TaskAnger       TaskType = "anger"
	TaskGloucester  TaskType = "gloucester"
)

// TaskOrder is the fixed sequence every character auditions through.
var TaskOrder = []TaskType{
	TaskGreeting,
	TaskUncertainty,
	TaskCorrection,
	TaskRefusal,
	TaskAnger,
	TaskGloucester,
}

// TaskCount is len(TaskOrder); voting rounds are indexed 0..TaskCount-1.
const TaskCount = 6

type SessionSettings struct {
	MaxPlayers           int  `json:"maxPlayers"`
	CreationTimerMinutes int  `json:"creationTimerMinutes"`
	AllowSelfVote        bool `json:"allowSelfVote"`
	RevealScoresDuring   bool `json:"revealScoresDuring"`
}

type Player struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	JoinedAt              time.Time    `json:"joinedAt"`
	HasSubmittedCharacter bool         `json:"hasSubmittedCharacter"`
	HasVoted              map[int]bool `json:"hasVoted"`
}

// CharacterSheet is the player-authored character description.
type CharacterSheet struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Backstory       string   `json:"backstory"`
	Desire          string   `json:"desire"`
	Fear            string   `json:"fear"`
	Status          string   `json:"status"` // "higher" | "equal" | "lower"
	VoiceSoundsLike string   `json:"voiceSoundsLike"`
	VoiceNeverLike  string   `json:"voiceNeverLike"`
	SignatureMoves  []string `json:"signatureMoves"`
	ForbiddenMoves  string   `json:"forbiddenMoves"`
	InnerLife       string   `json:"innerLife"`
	OuterLife       string   `json:"outerLife"`
	Appearance      string   `json:"appearance,omitempty"`
	AvatarURL       string   `json:"avatarUrl,omitempty"`
}

// CharacterWithAudition is a submitted sheet plus everything the session
// accumulates about it: who owns it, its anonymized label, the generated
// dialogues and the scores.
type CharacterWithAudition struct {
	CharacterSheet

	PlayerID       string              `json:"playerId"`
	BotLabel       string              `json:"botLabel"`
	Responses      map[TaskType]string `json:"responses"`
	CoherenceScore *CoherenceScore     `json:"coherenceScore,omitempty"`
	AudienceScore  *AudienceScore      `json:"audienceScore,omitempty"`
}

// Vote is one player's yes/no judgment of one bot for one task round.
type Vote struct {
	PlayerID  string `json:"playerId"`
	TaskIndex int    `json:"taskIndex"`
	BotLabel  string `json:"botLabel"`
	Approval  bool   `json:"approval"`
}

// SubScore is one rubric dimension of a coherence evaluation.
type SubScore struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// CoherenceScore is the machine evaluator's verdict on a character. All
// numeric fields are clamped on parse; see ParseScoreResponse.
type CoherenceScore struct {
	Overall             int      `json:"overall"`
	VoiceIntegrity      SubScore `json:"voiceIntegrity"`
	BehavioralFidelity  SubScore `json:"behavioralFidelity"`
	GloucesterDepth     SubScore `json:"gloucesterDepth"`
	ThroughLineAnalysis string   `json:"throughLineAnalysis"`
	MostCoherentMoment  string   `json:"mostCoherentMoment"`
	WeakestMoment       string   `json:"weakestMoment"`
	PerTaskScores       []int    `json:"perTaskScores,omitempty"`
}

// AudienceScore aggregates approval votes for one character. YesPerTask has
// one entry per task round.
type AudienceScore struct {
	YesPerTask      []int `json:"yesPerTask"`
	YesVotes        int   `json:"yesVotes"`
	TotalVotes      int   `json:"totalVotes"`
	ApprovalPercent int   `json:"approvalPercent"`
}

type AuditionProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Session is the root aggregate, one per room code. It is persisted as a
// whole record on every mutation.
type Session struct {
	Code             string                   `json:"code"`
	HostID           string                   `json:"hostId"`
	Status           Status                   `json:"status"`
	Players          []*Player                `json:"players"`
	Characters       []*CharacterWithAudition `json:"characters"`
	Votes            []Vote                   `json:"votes"`
	CurrentTask      int                      `json:"currentTask"`
	CreatedAt        time.Time                `json:"createdAt"`
	Settings         SessionSettings          `json:"settings"`
	AuditionProgress *AuditionProgress        `json:"auditionProgress,omitempty"`
}

// Award is a narrative distinction derived from the rankings.
type Award struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// FinalRanking is one leaderboard row. Derived on demand, never persisted.
type FinalRanking struct {
	BotLabel        string  `json:"botLabel"`
	CharacterName   string  `json:"characterName"`
	PlayerName      string  `json:"playerName"`
	CoherenceScore  int     `json:"coherenceScore"`
	CoherenceRank   int     `json:"coherenceRank"`
	ApprovalPercent int     `json:"audienceApprovalPercent"`
	AudienceRank    int     `json:"audienceRank"`
	CombinedRank    float64 `json:"combinedRank"`
	Awards          []Award `json:"awards"`
}

func (s *Session) FindPlayer(playerID string) *Player {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (s *Session) FindCharacterByPlayer(playerID string) *CharacterWithAudition {
	for _, c := range s.Characters {
		if c.PlayerID == playerID {
			return c
		}
	}
	return nil
}

func (s *Session) FindCharacterByLabel(botLabel string) *CharacterWithAudition {
	for _, c := range s.Characters {
		if c.BotLabel == botLabel {
			return c
		}
	}
	return nil
}
