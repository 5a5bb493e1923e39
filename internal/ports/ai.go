package ports

import "context"

type AIPort interface {
	Chat(ctx context.Context, message string) (string, error)
	// Annotate sends prompt together with an inline data URL image.
	Annotate(ctx context.Context, prompt, imageDataURL string) (string, error)
}
