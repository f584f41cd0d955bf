package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinabrahms/chessrules/internal/auth"
	"github.com/justinabrahms/chessrules/internal/config"
	"github.com/justinabrahms/chessrules/internal/game"
	"github.com/justinabrahms/chessrules/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line flags
	var showHelp bool
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information")
	flag.Parse()

	if showHelp {
		showHelpMessage()
		return
	}

	// Setup logging
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	configureLogging(cfg.Development)

	seats, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create seat token issuer")
	}
	if cfg.Auth.Secret == "" {
		log.Warn().Msg("No auth.secret configured; seat tokens will not survive a restart")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := game.NewStore(cfg.Games.MaxGames, cfg.Games.IdleTTL)
	hub := web.NewHub(cfg.WebSocket)
	service := web.NewService(store, seats, hub)

	go hub.Run(ctx)
	go store.Run(ctx, cfg.Games.SweepInterval, service.NotifyExpired)

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      service.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", srv.Addr).Int("maxGames", cfg.Games.MaxGames).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	cancel()

	log.Info().Msg("Server exited")
}

func configureLogging(dev config.DevelopmentConfig) {
	level, err := zerolog.ParseLevel(dev.LogLevel)
	if err != nil || dev.LogLevel == "" {
		log.Warn().Str("level", dev.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	if dev.Debug {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(level)
}

func showHelpMessage() {
	fmt.Println(`chessrules server

DESCRIPTION:
    Hosts chess games over HTTP. Every move is checked against the full
    rules of chess: piece movement, check, castling, en passant and
    promotion. Games end on checkmate or stalemate.

USAGE:
    chessrules-server [OPTIONS]

OPTIONS:
    -h, --help    Show this help message

CONFIGURATION:
    Reads config.yaml from the current directory or ./config. Every key
    can be overridden with a CHESSRULES_ environment variable, for
    example CHESSRULES_SERVER_PORT=9090.

    Example config.yaml:
        server:
          host: localhost
          port: 8080
        games:
          max_games: 1000
          idle_ttl: 2h
          sweep_interval: 5m
        auth:
          secret: "change-me"
          token_ttl: 24h
        websocket:
          ping_period: 54s
        development:
          debug: true
          log_level: debug

API ENDPOINTS:
    GET    /api/health                  - Service health check
    GET    /api/games                   - List hosted games (?status=active)
    POST   /api/games                   - Create a game (optional {"fen": ...})
    GET    /api/games/{id}              - Game snapshot
    GET    /api/games/{id}/legal        - Legal moves (?from=e2 for one square)
    POST   /api/games/{id}/moves        - Submit {"from","to"[,"promotion"]}
    POST   /api/games/{id}/promotion    - Resolve a pending promotion {"piece"}
    POST   /api/games/{id}/reset        - Restart from the initial position
    DELETE /api/games/{id}              - Stop hosting a game
    GET    /api/games/{id}/ws           - WebSocket feed of game updates

    Creating a game returns one bearer token per colour. Moves, promotions,
    resets and deletes need a token in the Authorization header.

EXAMPLES:
    # Create a game
    curl -X POST http://localhost:8080/api/games

    # Play 1. e4
    curl -X POST http://localhost:8080/api/games/$ID/moves \
      -H "Authorization: Bearer $WHITE_TOKEN" \
      -d '{"from": "e2", "to": "e4"}'`)
}
