package ports

import (
	"context"
	"image"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
)

type OCRPort interface {
	// Recognize returns word texts and boxes in the engine's reading order.
	Recognize(ctx context.Context, img image.Image) (*domain.Recognition, error)
}
