package ai

import "context"

// TextGenerator is the narrow capability the interview engines need from a
// generative backend: one prompt in, one text completion out. Prompt
// construction and output parsing belong to the callers, not to the backend.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
