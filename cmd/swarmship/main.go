package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
	"github.com/urfave/cli"

	"github.com/tomz197/swarmship/internal/api"
	"github.com/tomz197/swarmship/internal/app"
	"github.com/tomz197/swarmship/internal/config"
	gameconfig "github.com/tomz197/swarmship/internal/loop/config"
)

func main() {
	if err := makeapp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func makeapp() *cli.App {
	defaults := config.Load()

	a := cli.NewApp()
	a.Name = "swarmship"
	a.Usage = "Gesture and voice controlled swarm arcade simulation"
	a.Flags = []cli.Flag{
		cli.StringFlag{Name: "http-addr", Value: defaults.HTTPAddr, Usage: "Address of the control API"},
		cli.StringFlag{Name: "gesture-url", Value: defaults.GestureURL, Usage: "Hand tracking WebSocket; empty disables"},
		cli.StringFlag{Name: "voice-url", Value: defaults.VoiceURL, Usage: "Voice command WebSocket; empty disables"},
		cli.StringFlag{Name: "ai-endpoint", Value: defaults.AIEndpoint, Usage: "AI backend queried when the autonomous mode activates"},
		cli.IntFlag{Name: "width", Value: defaults.CanvasWidth, Usage: "Simulation width"},
		cli.IntFlag{Name: "height", Value: defaults.CanvasHeight, Usage: "Simulation height"},
		cli.StringFlag{Name: "collision-policy", Value: defaults.CollisionPolicy, Usage: "report or damage"},
		cli.StringFlag{Name: "audio-file", Value: defaults.AudioFile, Usage: "WAV file for the frequency bars; empty synthesizes a tone"},
		cli.IntFlag{Name: "reconnect-max-attempts", Value: defaults.ReconnectMaxAttempts, Usage: "Reconnect attempts per outage, 0 for unbounded"},
		cli.StringFlag{Name: "log-level", Value: defaults.LogLevel, Usage: "debug, info, warn or error"},
		cli.BoolFlag{Name: "autostart", Usage: "Start the game without waiting for a start command"},
	}
	a.Action = func(c *cli.Context) error {
		cfg := defaults
		cfg.HTTPAddr = c.String("http-addr")
		cfg.GestureURL = c.String("gesture-url")
		cfg.VoiceURL = c.String("voice-url")
		cfg.AIEndpoint = c.String("ai-endpoint")
		cfg.CanvasWidth = c.Int("width")
		cfg.CanvasHeight = c.Int("height")
		cfg.CollisionPolicy = c.String("collision-policy")
		cfg.AudioFile = c.String("audio-file")
		cfg.ReconnectMaxAttempts = c.Int("reconnect-max-attempts")
		cfg.LogLevel = c.String("log-level")
		return serve(cfg, c.Bool("autostart"))
	}
	return a
}

func serve(cfg config.Config, autostart bool) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           cfg.Level(),
	})

	game, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameDone := make(chan error, 1)
	go func() {
		gameDone <- game.Run(ctx)
	}()

	if autostart {
		if err := game.Server.Start(); err != nil {
			logger.Warn("autostart failed", "err", err)
		}
	}

	accessLog := logger.WithPrefix("http").StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.CombinedLoggingHandler(accessLog.Writer(), api.NewServer(game.Server, logger).Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting control API", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		stop()
		<-gameDone
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gameconfig.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}

	return <-gameDone
}
