package usecase

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
)

// BuildTokens turns raw engine output into tokens: engine order is kept, text
// is trimmed, blank entries are dropped and the survivors get ids 0..n-1.
func BuildTokens(rec *domain.Recognition) ([]domain.Token, error) {
	if rec == nil {
		return []domain.Token{}, nil
	}
	if len(rec.Words) != len(rec.Boxes) {
		return nil, fmt.Errorf("engine returned %d words but %d boxes", len(rec.Words), len(rec.Boxes))
	}

	tokens := make([]domain.Token, 0, len(rec.Words))
	for i, w := range rec.Words {
		text := strings.TrimSpace(w)
		if text == "" {
			continue
		}
		tokens = append(tokens, domain.Token{
			ID:   len(tokens),
			Text: text,
			BBox: rec.Boxes[i],
		})
	}
	return tokens, nil
}

func joinText(tokens []domain.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// extractTokens runs exactly one OCR call under the concurrency limit.
func (s *PIIService) extractTokens(ctx context.Context, op string, img image.Image) ([]domain.Token, error) {
	// concurrency limiter
	select {
	case s.ocrSem <- struct{}{}:
	case <-ctx.Done():
		return nil, domain.NewEngineError(op, "ocr", ctx.Err())
	}
	defer func() { <-s.ocrSem }()

	rec, err := s.ocr.Recognize(ctx, img)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("OCR error")
		return nil, domain.NewEngineError(op, "ocr", err)
	}

	tokens, err := BuildTokens(rec)
	if err != nil {
		return nil, domain.NewEngineError(op, "ocr", err)
	}
	return tokens, nil
}
