package main

import (
	"context"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/n3ms/medialib/internal/ui"
)

// Daemon runs the three managers headless until SIGINT/SIGTERM. The sync
// manager's periodic timer handles discovery; downloads and metadata
// refreshes arrive through the monitor or one-shot commands sharing the
// database.
func (r *Runner) Daemon(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := r.newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	r.logger.Info("managers started")
	sess.start(ctx)

	<-ctx.Done()
	r.logger.Info("shutting down")
	return nil
}

// Monitor runs the managers with the live terminal monitor attached to the
// event bus. Quitting the monitor stops the managers.
func (r *Runner) Monitor(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := r.newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess.start(ctx)

	stream, unsubscribe := sess.bus.Subscribe(0)
	model := ui.NewModel(stream, func() {
		cancel()
		unsubscribe()
	})

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return err
	}
	return nil
}
