// Package api mounts the JSON surface over the core operations. Clients
// poll GET /api/session/:code for state; there is no push channel.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"botcast/internal/ai"
	"botcast/internal/audition"
	"botcast/internal/game"
	"botcast/internal/prompts"
)

type Server struct {
	manager      *game.Manager
	orchestrator *audition.Orchestrator
	provider     ai.Provider
	model        string
}

func New(manager *game.Manager, orchestrator *audition.Orchestrator, provider ai.Provider, model string) *Server {
	return &Server{manager: manager, orchestrator: orchestrator, provider: provider, model: model}
}

// Mount registers all routes under /api.
func (s *Server) Mount(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/session", s.createSession)
	api.GET("/session/:code", s.getSession)
	api.POST("/session/:code/join", s.join)
	api.POST("/session/:code/character", s.submitCharacter)
	api.POST("/session/:code/advance", s.advance)
	api.POST("/session/:code/vote", s.vote)
	api.GET("/session/:code/results", s.results)
	api.GET("/session/:code/votes", s.voteCounts)
	api.POST("/avatar", s.avatar)
	api.POST("/generate", s.generate)
}

func fail(c *gin.Context, err error) {
	if errors.Is(err, game.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) createSession(c *gin.Context) {
	var settings game.SessionSettings
	// An empty or absent body means default settings.
	if err := c.ShouldBindJSON(&settings); err != nil {
		settings = game.SessionSettings{}
	}
	code, hostID, err := s.manager.CreateSession(c.Request.Context(), settings)
	if err != nil {
		fail(c, err)
		return
	}
	log.Info().Str("code", code).Msg("session created")
	c.JSON(http.StatusOK, gin.H{"code": code, "hostId": hostID})
}

func (s *Server) getSession(c *gin.Context) {
	sess, err := s.manager.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (s *Server) join(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player name is required"})
		return
	}
	playerID, err := s.manager.Join(c.Request.Context(), c.Param("code"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playerId": playerID})
}

func (s *Server) submitCharacter(c *gin.Context) {
	var req struct {
		PlayerID  string              `json:"playerId" binding:"required"`
		Character game.CharacterSheet `json:"character" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playerId and character are required"})
		return
	}
	if err := s.manager.SubmitCharacter(c.Request.Context(), c.Param("code"), req.PlayerID, req.Character); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) advance(c *gin.Context) {
	var req struct {
		HostID string `json:"hostId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hostId is required"})
		return
	}
	code := c.Param("code")
	sess, err := s.manager.AdvancePhase(c.Request.Context(), code, req.HostID)
	if err != nil {
		fail(c, err)
		return
	}

	// creating -> auditioning kicks off generation in the background; the
	// orchestrator owns the next transition. The request context dies with
	// this handler, so the batch runs on its own context.
	if sess.Status == game.StatusAuditioning {
		go s.orchestrator.Run(context.Background(), sess.Code)
	}

	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (s *Server) vote(c *gin.Context) {
	var req struct {
		PlayerID  string          `json:"playerId" binding:"required"`
		TaskIndex *int            `json:"taskIndex" binding:"required"`
		Approvals map[string]bool `json:"approvals" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playerId, taskIndex, and approvals are required"})
		return
	}
	if err := s.manager.SubmitApprovals(c.Request.Context(), c.Param("code"), req.PlayerID, *req.TaskIndex, req.Approvals); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) results(c *gin.Context) {
	sess, err := s.manager.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	rankings := game.ComputeRankings(sess)
	c.JSON(http.StatusOK, gin.H{
		"rankings":   rankings,
		"characters": sess.Characters,
		"players":    sess.Players,
		"votes":      sess.Votes,
	})
}

func (s *Server) voteCounts(c *gin.Context) {
	sess, err := s.manager.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	taskIndex := sess.CurrentTask
	if raw := c.Query("task"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n >= game.TaskCount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task index"})
			return
		}
		taskIndex = n
	}
	c.JSON(http.StatusOK, gin.H{
		"counts":    game.VoteCountsForTask(sess, taskIndex),
		"submitted": game.VotesSubmittedForTask(sess, taskIndex),
	})
}

func (s *Server) avatar(c *gin.Context) {
	var req struct {
		Character game.CharacterSheet `json:"character" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "character is required"})
		return
	}
	url, err := s.provider.GenerateImage(c.Request.Context(), prompts.Avatar(req.Character))
	if err != nil {
		log.Error().Err(err).Msg("avatar generation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to generate avatar"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// generate is the single-player path: one audition task or one scoring call
// for a character supplied directly in the request.
func (s *Server) generate(c *gin.Context) {
	var req struct {
		Type      string                   `json:"type" binding:"required"`
		Character game.CharacterSheet      `json:"character" binding:"required"`
		Task      game.TaskType            `json:"task"`
		Responses map[game.TaskType]string `json:"responses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and character are required"})
		return
	}

	switch req.Type {
	case "audition_task":
		if _, ok := prompts.TaskScenarios[req.Task]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valid task type is required"})
			return
		}
		text, err := s.provider.Complete(c.Request.Context(), prompts.System(req.Character), prompts.Task(req.Character, req.Task), ai.Params{
			Model:       s.model,
			MaxTokens:   1024,
			Temperature: 1.0,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"response": text})
	case "score":
		if len(req.Responses) != game.TaskCount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "all 6 responses are required for scoring"})
			return
		}
		raw, err := s.provider.Complete(c.Request.Context(), "", prompts.Scoring(req.Character, req.Responses), ai.Params{
			Model:       s.model,
			MaxTokens:   2048,
			Temperature: 0.3,
		})
		if err != nil {
			fail(c, err)
			return
		}
		score, err := game.ParseScoreResponse(raw)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"score": score})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request type"})
	}
}
