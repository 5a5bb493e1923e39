package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/pkg/imagecodec"
	"github.com/otiai10/gosseract/v2"
)

type Config struct {
	Languages   []string
	PageSegMode int
}

// TesseractOCR runs word-level recognition through libtesseract.
// Each call gets its own client; clients are not safe for concurrent use.
type TesseractOCR struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

func NewTesseractOCR(cfg Config) *TesseractOCR {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &TesseractOCR{cfg: cfg, clientFactory: gosseract.NewClient}
}

func (t *TesseractOCR) Name() string { return "tesseract" }

// Version reports the linked libtesseract version.
func (t *TesseractOCR) Version() string {
	c := t.clientFactory()
	defer c.Close()
	return c.Version()
}

func (t *TesseractOCR) Recognize(ctx context.Context, img image.Image) (*domain.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(t.cfg.Languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(t.cfg.PageSegMode)); err != nil {
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("word boxes: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return toRecognition(boxes), nil
}

// toRecognition keeps every engine entry, blank ones included; filtering is the caller's job.
func toRecognition(boxes []gosseract.BoundingBox) *domain.Recognition {
	rec := &domain.Recognition{
		Words: make([]string, 0, len(boxes)),
		Boxes: make([]domain.BBox, 0, len(boxes)),
	}
	for _, b := range boxes {
		rec.Words = append(rec.Words, strings.TrimRight(b.Word, "\n"))
		rec.Boxes = append(rec.Boxes, domain.BBox{
			Left:   b.Box.Min.X,
			Top:    b.Box.Min.Y,
			Width:  b.Box.Dx(),
			Height: b.Box.Dy(),
		})
	}
	return rec
}
