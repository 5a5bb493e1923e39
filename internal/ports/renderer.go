package ports

import (
	"image"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
)

type RendererPort interface {
	// Render paints the selected token boxes on a copy of img and encodes it losslessly.
	Render(img image.Image, tokens []domain.Token, selected domain.SelectionSet) (*domain.RenderedImage, error)
}
