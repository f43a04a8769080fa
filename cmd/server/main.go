package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"botcast/internal/ai/openai"
	"botcast/internal/api"
	"botcast/internal/audition"
	"botcast/internal/config"
	"botcast/internal/game"
	"botcast/internal/store"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Botcast - character audition party game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                 Port to listen on (default: 8080)
  OPENAI_API_KEY       OpenAI API key (required for generation)
  OPENAI_BASE_URL      Custom OpenAI API base URL (optional)
  MODEL                Model for generation and scoring (default: gpt-4o)
  REDIS_ADDR           Redis address; empty keeps sessions in memory
  REDIS_PASSWORD       Redis password (optional)
  REDIS_DB             Redis database number (default: 0)
  SESSION_TTL          Session lifetime from creation (default: 2h)
  AUDITION_BATCH_SIZE  Characters auditioned concurrently (default: 3)
  DEFAULT_MAX_PLAYERS  Max players when the host does not set one (default: 12)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Botcast %s\n", version)
		return
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	var sessionStore game.Store
	if cfg.RedisAddr != "" {
		rs := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rs.Ping(context.Background()); err != nil {
			zerologlog.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
		}
		sessionStore = rs
		zerologlog.Info().Str("addr", cfg.RedisAddr).Msg("using redis session store")
	} else {
		sessionStore = store.NewMemory()
		zerologlog.Info().Msg("using in-memory session store")
	}

	manager := game.NewManager(sessionStore, cfg.SessionTTL)
	manager.SetDefaultMaxPlayers(cfg.DefaultMaxPlayers)
	provider := openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	orchestrator := audition.New(manager, provider, cfg.Model, cfg.AuditionBatch)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zerologlog.Info().
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api.New(manager, orchestrator, provider, cfg.Model).Mount(r)

	zerologlog.Info().Str("port", cfg.Port).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server stopped")
	}
}
