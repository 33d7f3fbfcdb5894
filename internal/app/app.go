// Package app assembles the simulation, its input feeds, the audio analyzer
// and the tick server from a configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/tomz197/swarmship/internal/ai"
	"github.com/tomz197/swarmship/internal/audio"
	"github.com/tomz197/swarmship/internal/config"
	"github.com/tomz197/swarmship/internal/feed"
	"github.com/tomz197/swarmship/internal/input"
	"github.com/tomz197/swarmship/internal/loop"
	gameconfig "github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/loop/server"
)

// App is a fully wired game.
type App struct {
	Server *server.Server

	logger     *log.Logger
	feeds      []*feed.Channel
	analyzer   *audio.Analyzer
	closeAudio func() error
}

// New wires a game from cfg. The game is paused in Single mode until started.
func New(cfg config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	policy, err := loop.ParsePolicy(cfg.CollisionPolicy)
	if err != nil {
		return nil, err
	}

	sim := loop.NewSimulation(loop.Options{
		Width:  cfg.CanvasWidth,
		Height: cfg.CanvasHeight,
		Policy: policy,
		Logger: logger.WithPrefix("sim"),
	})

	controls := input.NewControls(logger.WithPrefix("input"))
	feeds := []*feed.Channel{
		newFeed(cfg, "gesture", cfg.GestureURL, controls.OnHandFrame, logger),
		newFeed(cfg, "voice", cfg.VoiceURL, controls.OnVoiceMessage, logger),
	}

	analyzer, closeAudio := newAnalyzer(cfg, logger)

	opts := server.Options{
		Sim:           sim,
		Controls:      controls,
		Spectrum:      analyzer,
		AdviceTimeout: cfg.AITimeout,
		Logger:        logger,
	}
	for _, f := range feeds {
		opts.Feeds = append(opts.Feeds, f)
	}
	if cfg.AIEndpoint != "" {
		opts.Advisor = ai.NewClient(cfg.AIEndpoint, cfg.AITimeout, logger)
	}

	logger.Info("game wired",
		"width", cfg.CanvasWidth,
		"height", cfg.CanvasHeight,
		"policy", policy,
		"ai", cfg.AIEndpoint != "",
	)

	return &App{
		Server:     server.New(opts),
		logger:     logger,
		feeds:      feeds,
		analyzer:   analyzer,
		closeAudio: closeAudio,
	}, nil
}

func newFeed(cfg config.Config, name, url string, handler feed.Handler, logger *log.Logger) *feed.Channel {
	return feed.New(feed.Options{
		Name:            name,
		URL:             url,
		InitialInterval: cfg.ReconnectDelay,
		MaxInterval:     cfg.ReconnectMaxInterval,
		MaxAttempts:     cfg.ReconnectMaxAttempts,
		Logger:          logger,
	}, handler)
}

// newAnalyzer opens the configured audio file, or synthesizes a tone when
// none is set. Failures leave a disabled analyzer; the game runs without bars.
func newAnalyzer(cfg config.Config, logger *log.Logger) (*audio.Analyzer, func() error) {
	noop := func() error { return nil }

	if cfg.AudioFile != "" {
		src, format, closeFn, err := audio.OpenWAV(cfg.AudioFile)
		if err != nil {
			return audio.Disabled(err, logger), noop
		}
		return audio.NewAnalyzer(src, format.SampleRate, logger), closeFn
	}

	src, err := audio.NewToneSource(audio.SampleRate)
	if err != nil {
		return audio.Disabled(err, logger), noop
	}
	return audio.NewAnalyzer(src, audio.SampleRate, logger), noop
}

// Run starts the tick loop, the feeds and the analyzer, and blocks until ctx
// ends. A feed that gives up only degrades the game.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.closeAudio(); err != nil {
			a.logger.Warn("close audio source", "err", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Server.Run(ctx)
		return nil
	})

	for _, f := range a.feeds {
		f := f
		g.Go(func() error {
			err := f.Run(ctx)
			switch {
			case err == nil, errors.Is(err, feed.ErrDisabled):
			default:
				a.logger.Warn("input feed stopped", "feed", f.Name(), "err", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		a.analyzer.Run(ctx, gameconfig.StreamInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run game: %w", err)
	}
	return nil
}

// Feeds returns the input channels.
func (a *App) Feeds() []*feed.Channel {
	return a.feeds
}
