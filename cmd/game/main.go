package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/tomz197/swarmship/internal/app"
	"github.com/tomz197/swarmship/internal/config"
	"github.com/tomz197/swarmship/internal/loop/client"
)

func main() {
	cfg := config.Load()

	// The screen belongs to the renderer; logs go to LOG_FILE or nowhere
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := log.NewWithOptions(logOut, log.Options{ReportTimestamp: true, Level: cfg.Level()})

	game, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up game: %v\n", err)
		os.Exit(1)
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable raw mode: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	gameDone := make(chan error, 1)
	go func() {
		gameDone <- game.Run(ctx)
	}()

	reader := bufio.NewReader(os.Stdin)
	c := client.NewClient(game.Server, reader, os.Stdout, client.ClientOptions{
		Username: os.Getenv("USER"),
		Logger:   logger,
	})
	runErr := c.Run(ctx)

	cancel()
	if err := <-gameDone; err != nil {
		logger.Error("game stopped", "err", err)
	}
	if runErr != nil {
		_ = term.Restore(fd, oldState)
		fmt.Fprintf(os.Stderr, "game error: %v\n", runErr)
		os.Exit(1)
	}
}
