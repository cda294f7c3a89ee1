package cli

import (
	"errors"
	"io"

	"github.com/charmbracelet/huh"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// PromptConfirmer asks on a terminal with a huh confirm field.
type PromptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: in, out: out}
}

// Confirm returns false, without error, when the prompt is interrupted.
func (p *PromptConfirmer) Confirm(prompt string) (bool, error) {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	)).WithInput(p.in).WithOutput(p.out).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
