package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gerak/internal/shared"
	"github.com/desertthunder/gerak/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal coaching session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	logPath := cmd.String("log-file")
	if logPath == "" {
		logPath = r.config.Log.File
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session, err := r.newSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if addr := cmd.String("preview"); addr != "" {
		srv, err := r.newWebServer(session, addr)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Run(ctx); err != nil {
				r.logger.Error("preview server stopped", "error", err)
			}
		}()
	}

	p := tea.NewProgram(ui.NewModel(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
