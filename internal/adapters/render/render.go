package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/pkg/imagecodec"
	"github.com/disintegration/imaging"
)

type Option func(*Renderer)

// WithFill sets the colour painted over redacted tokens.
func WithFill(c color.Color) Option {
	return func(r *Renderer) { r.fill = c }
}

type Renderer struct {
	fill color.Color
}

func New(opts ...Option) *Renderer {
	r := &Renderer{fill: color.NRGBA{A: 0xff}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Redact paints every selected token's box on a copy of img and reports how
// many tokens were painted. Ids not present in tokens and boxes lying wholly
// outside the image are not counted.
func (r *Renderer) Redact(img image.Image, tokens []domain.Token, selected domain.SelectionSet) (*image.NRGBA, int) {
	out := imaging.Clone(img)
	if selected.Len() == 0 {
		return out, 0
	}

	fill := image.NewUniform(r.fill)
	bounds := out.Bounds()
	painted := 0
	for _, tok := range tokens {
		if !selected.Contains(tok.ID) {
			continue
		}
		rect := tok.BBox.Rect().Intersect(bounds)
		if rect.Empty() {
			continue
		}
		draw.Draw(out, rect, fill, image.Point{}, draw.Src)
		painted++
	}
	return out, painted
}

func (r *Renderer) Render(img image.Image, tokens []domain.Token, selected domain.SelectionSet) (*domain.RenderedImage, error) {
	out, painted := r.Redact(img, tokens, selected)

	data, err := imagecodec.EncodePNG(out)
	if err != nil {
		return nil, domain.NewEncodeError("render", err)
	}

	return &domain.RenderedImage{
		PNG:      data,
		Width:    out.Bounds().Dx(),
		Height:   out.Bounds().Dy(),
		Redacted: painted,
	}, nil
}
