package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zenevo/shirodhara/internal/session"
)

// Run shows the dashboard until the user quits or ctx is done.
// It returns the parameters left in the editor.
func Run(ctx context.Context, source Source, commands Commands, params session.Parameters) (session.Parameters, error) {
	updates, unsubscribe := source.Subscribe()
	defer unsubscribe()

	model := NewModel(ctx, source.Status(), updates, commands, params)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	if m, ok := final.(Model); ok {
		return m.Parameters(), err
	}
	return params, err
}
