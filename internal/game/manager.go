package game

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrCannotAdvance    = errors.New("cannot advance phase")
	ErrSessionFull      = errors.New("session is full")
	ErrAlreadyStarted   = errors.New("session already started")
	ErrInvalidPhase     = errors.New("invalid action for current phase")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrAlreadySubmitted = errors.New("character already submitted")
	ErrAlreadyVoted     = errors.New("already voted for this task")
	ErrStaleTask        = errors.New("vote does not target the current task")
)

// Store is the persistence boundary. Implementations live in internal/store.
type Store interface {
	Get(ctx context.Context, code string) (*Session, error)
	Set(ctx context.Context, code string, session *Session, ttl time.Duration) error
	Exists(ctx context.Context, code string) (bool, error)
}

// Room codes skip visually ambiguous characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 4

// botLabelPool is the fixed pool of anonymized display identities. Truncated
// to the character count and shuffled when auditions begin.
var botLabelPool = func() []string {
	labels := make([]string, 0, 20)
	for _, c := range "ABCDEFGHIJKLMNOPQRST" {
		labels = append(labels, "Bot "+string(c))
	}
	return labels
}()

// Manager owns every session mutation. Each operation reads the whole record,
// validates against current state, mutates, and writes the whole record back.
// Mutations for the same code are serialized through a per-code mutex so two
// concurrent operations in this process cannot lose each other's writes.
type Manager struct {
	store             Store
	ttl               time.Duration
	defaultMaxPlayers int

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock pairs a per-code mutex with its last use so stale entries can
// be dropped after the session's TTL has passed. lastUsed is guarded by
// Manager.mu, not by the embedded mutex.
type sessionLock struct {
	sync.Mutex
	lastUsed time.Time
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{
		store:             store,
		ttl:               ttl,
		defaultMaxPlayers: DefaultSettings().MaxPlayers,
		locks:             make(map[string]*sessionLock),
	}
}

// SetDefaultMaxPlayers overrides the player cap applied when the host omits
// one. Values outside [1, len(botLabelPool)] are ignored.
func (m *Manager) SetDefaultMaxPlayers(n int) {
	if n > 0 && n <= len(botLabelPool) {
		m.defaultMaxPlayers = n
	}
}

func (m *Manager) lock(code string) func() {
	m.mu.Lock()
	l, ok := m.locks[code]
	if !ok {
		m.pruneLocks()
		l = &sessionLock{}
		m.locks[code] = l
	}
	l.lastUsed = time.Now()
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// pruneLocks drops mutexes whose session TTL has long passed. Caller holds
// m.mu. An entry touched within the last TTL window is never dropped, so a
// goroutine that fetched its lock under m.mu still holds a live entry.
func (m *Manager) pruneLocks() {
	cutoff := time.Now().Add(-m.ttl)
	for code, l := range m.locks {
		if l.lastUsed.Before(cutoff) {
			delete(m.locks, code)
		}
	}
}

// writeSession persists the record with whatever lifetime it has left. The
// TTL is measured from creation, not last access, so late-session writes must
// not extend it.
func (m *Manager) writeSession(ctx context.Context, s *Session) error {
	remaining := m.ttl - time.Since(s.CreatedAt)
	if remaining <= 0 {
		return ErrSessionNotFound
	}
	return m.store.Set(ctx, s.Code, s, remaining)
}

// DefaultSettings returns the settings applied when the host omits a field.
func DefaultSettings() SessionSettings {
	return SessionSettings{
		MaxPlayers:           12,
		CreationTimerMinutes: 0,
		AllowSelfVote:        false,
		RevealScoresDuring:   false,
	}
}

// CreateSession allocates a collision-free room code and persists a fresh
// lobby session. The returned hostId is the bearer token for every
// phase-advancing operation.
func (m *Manager) CreateSession(ctx context.Context, settings SessionSettings) (code string, hostID string, err error) {
	if settings.MaxPlayers <= 0 {
		settings.MaxPlayers = m.defaultMaxPlayers
	}
	// The bot label pool bounds how many characters one session can carry.
	if settings.MaxPlayers > len(botLabelPool) {
		settings.MaxPlayers = len(botLabelPool)
	}

	for {
		code = randomCode(codeLength)
		exists, err := m.store.Exists(ctx, code)
		if err != nil {
			return "", "", err
		}
		if !exists {
			break
		}
	}

	hostID = uuid.NewString()
	s := &Session{
		Code:        code,
		HostID:      hostID,
		Status:      StatusLobby,
		Players:     []*Player{},
		Characters:  []*CharacterWithAudition{},
		Votes:       []Vote{},
		CurrentTask: 0,
		CreatedAt:   time.Now().UTC(),
		Settings:    settings,
	}
	if err := m.store.Set(ctx, code, s, m.ttl); err != nil {
		return "", "", err
	}
	return code, hostID, nil
}

func (m *Manager) GetSession(ctx context.Context, code string) (*Session, error) {
	return m.store.Get(ctx, normalizeCode(code))
}

// Join adds a player during the lobby phase and returns the new player id.
func (m *Manager) Join(ctx context.Context, code, name string) (string, error) {
	code = normalizeCode(code)
	defer m.lock(code)()

	s, err := m.store.Get(ctx, code)
	if err != nil {
		return "", err
	}
	if s.Status != StatusLobby {
		return "", ErrAlreadyStarted
	}
	if len(s.Players) >= s.Settings.MaxPlayers {
		return "", ErrSessionFull
	}

	p := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		JoinedAt: time.Now().UTC(),
		HasVoted: make(map[int]bool),
	}
	s.Players = append(s.Players, p)
	if err := m.writeSession(ctx, s); err != nil {
		return "", err
	}
	return p.ID, nil
}

// SubmitCharacter records one character sheet for one player during the
// creation phase. Same-player races resolve to a single accepted submission:
// both the player flag and the character roster are re-checked under the
// session lock before the decisive append.
func (m *Manager) SubmitCharacter(ctx context.Context, code, playerID string, sheet CharacterSheet) error {
	code = normalizeCode(code)
	defer m.lock(code)()

	s, err := m.store.Get(ctx, code)
	if err != nil {
		return err
	}
	if s.Status != StatusCreating {
		return ErrInvalidPhase
	}
	p := s.FindPlayer(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if p.HasSubmittedCharacter {
		return ErrAlreadySubmitted
	}
	if s.FindCharacterByPlayer(playerID) != nil {
		return ErrAlreadySubmitted
	}

	sheet.ID = uuid.NewString()
	s.Characters = append(s.Characters, &CharacterWithAudition{
		CharacterSheet: sheet,
		PlayerID:       playerID,
		BotLabel:       "",
		Responses:      make(map[TaskType]string),
	})
	p.HasSubmittedCharacter = true
	return m.writeSession(ctx, s)
}

// AdvancePhase moves the session one step along the phase graph. Host token
// mismatches and invalid transitions are rejected identically so a caller
// cannot tell which check failed.
//
//	lobby -> creating          (requires >= 2 players)
//	creating -> auditioning    (assigns bot labels; caller starts the orchestrator)
//	auditioning -> rejected    (the orchestrator advances this phase, not the host)
//	presenting -> voting
//	voting -> presenting       (next task) or results (after the last task)
func (m *Manager) AdvancePhase(ctx context.Context, code, hostID string) (*Session, error) {
	code = normalizeCode(code)
	defer m.lock(code)()

	s, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.HostID != hostID {
		return nil, ErrCannotAdvance
	}

	switch s.Status {
	case StatusLobby:
		if len(s.Players) < 2 {
			return nil, ErrCannotAdvance
		}
		s.Status = StatusCreating
	case StatusCreating:
		assignBotLabels(s)
		s.Status = StatusAuditioning
	case StatusPresenting:
		s.Status = StatusVoting
	case StatusVoting:
		next := s.CurrentTask + 1
		if next >= TaskCount {
			s.Status = StatusResults
		} else {
			s.CurrentTask = next
			s.Status = StatusPresenting
		}
	default:
		// auditioning is system-advanced; results is terminal.
		return nil, ErrCannotAdvance
	}

	if err := m.writeSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// assignBotLabels gives every character an anonymized identity. Labels are
// drawn from the fixed pool, truncated to the character count and randomly
// permuted so display order leaks nothing about submission order.
func assignBotLabels(s *Session) {
	n := len(s.Characters)
	if n > len(botLabelPool) {
		// CreateSession caps MaxPlayers at the pool size, so this only
		// triggers on records written by an older build.
		n = len(botLabelPool)
	}
	labels := make([]string, n)
	copy(labels, botLabelPool[:n])
	rand.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })
	for i, c := range s.Characters[:n] {
		c.BotLabel = labels[i]
	}
}

// SubmitApprovals records one player's yes/no ballot for the current task.
// The voted flag is checked before any filtering and set exactly once; that
// flag is the one-vote-per-task guarantee. Self-votes are dropped unless the
// session allows them, and labels not on the roster are dropped rather than
// failing the whole ballot.
func (m *Manager) SubmitApprovals(ctx context.Context, code, playerID string, taskIndex int, approvals map[string]bool) error {
	code = normalizeCode(code)
	defer m.lock(code)()

	s, err := m.store.Get(ctx, code)
	if err != nil {
		return err
	}
	if s.Status != StatusVoting {
		return ErrInvalidPhase
	}
	if taskIndex != s.CurrentTask {
		return ErrStaleTask
	}
	p := s.FindPlayer(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if p.HasVoted[taskIndex] {
		return ErrAlreadyVoted
	}

	for botLabel, approval := range approvals {
		c := s.FindCharacterByLabel(botLabel)
		if c == nil {
			continue
		}
		if c.PlayerID == playerID && !s.Settings.AllowSelfVote {
			continue
		}
		s.Votes = append(s.Votes, Vote{
			PlayerID:  playerID,
			TaskIndex: taskIndex,
			BotLabel:  botLabel,
			Approval:  approval,
		})
	}

	if p.HasVoted == nil {
		p.HasVoted = make(map[int]bool)
	}
	p.HasVoted[taskIndex] = true
	return m.writeSession(ctx, s)
}

// SetCharacterResponses stores a character's generated dialogues.
func (m *Manager) SetCharacterResponses(ctx context.Context, code, playerID string, responses map[TaskType]string) error {
	defer m.lock(code)()
	s, err := m.store.Get(ctx, code)
	if err != nil {
		return err
	}
	c := s.FindCharacterByPlayer(playerID)
	if c == nil {
		return ErrPlayerNotFound
	}
	c.Responses = responses
	return m.writeSession(ctx, s)
}

func (m *Manager) SetCharacterScore(ctx context.Context, code, playerID string, score *CoherenceScore) error {
	defer m.lock(code)()
	s, err := m.store.Get(ctx, code)
	if err != nil {
		return err
	}
	c := s.FindCharacterByPlayer(playerID)
	if c == nil {
		return ErrPlayerNotFound
	}
	c.CoherenceScore = score
	return m.writeSession(ctx, s)
}

func (m *Manager) SetAuditionProgress(ctx context.Context, code string, completed, total int) error {
	defer m.lock(code)()
	s, err := m.store.Get(ctx, code)
	if err != nil {
		return err
	}
	s.AuditionProgress = &AuditionProgress{Completed: completed, Total: total}
	return m.writeSession(ctx, s)
}

func (m *Manager) SetStatus(ctx context.Context, code string, status Status) error {
	defer m.lock(code)()
	s, err := m.store.Get(ctx, code)
	if err != nil {
		return err
	}
	s.Status = status
	if status == StatusPresenting {
		s.CurrentTask = 0
	}
	return m.writeSession(ctx, s)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
