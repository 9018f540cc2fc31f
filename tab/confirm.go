package tab

import "context"

// Confirmer asks the user to approve a consequential action. It blocks until
// the user answers or ctx ends.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

var (
	// Approve confirms everything (non-interactive use, --yes).
	Approve Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	// Deny refuses everything. Controllers use it when no confirmer is set.
	Deny Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
)
