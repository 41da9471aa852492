package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/guessbot/cmd/guessbot/shared"
	"github.com/lox/guessbot/internal/client"
	"github.com/lox/guessbot/internal/game"
	"github.com/lox/guessbot/internal/tui"
)

// PlayCmd opens a terminal chat with a running gateway
type PlayCmd struct {
	Server    string `kong:"default='http://localhost:8080',help='Gateway URL'"`
	UserID    int64  `kong:"name='user-id',default='1',help='Chat user id'"`
	Username  string `kong:"env='USER',help='Username shown in records'"`
	FirstName string `kong:"name='first-name',help='First name, used when username is empty'"`
	Token     string `kong:"env='GUESSBOT_TOKEN',help='Token for gateways that require authentication'"`
	LogFile   string `kong:"name='log-file',default='guessbot-play.log',help='Log file (the terminal is used by the UI)'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
}

func (c *PlayCmd) Run() error {
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()
	logger := shared.SetupFileLogger(f, c.Debug)

	user := game.User{ID: c.UserID, Username: c.Username, FirstName: c.FirstName}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var opts []client.DialOption
	if c.Token != "" {
		opts = append(opts, client.WithToken(c.Token))
	}
	cl, err := client.Dial(ctx, c.Server, user, logger, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	title := fmt.Sprintf("guessbot | %s", user.DisplayName())
	model := tui.NewModel(cl, cl.Messages(), title, logger)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}
