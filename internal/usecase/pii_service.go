package usecase

import (
	"context"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/pkg/imagecodec"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultPrompt         = "Analyze this redacted image."
	DefaultOCRConcurrency = 3
	DefaultMaxPixels      = 40_000_000
	DefaultAuditTimeout   = 5 * time.Second
)

type Options struct {
	OCRConcurrency int
	DefaultPrompt  string
	// MaxPixels bounds width*height of accepted uploads.
	MaxPixels    int
	AuditTimeout time.Duration
	Logger       zerolog.Logger
}

type PIIService struct {
	ocr        ports.OCRPort
	classifier ports.ClassifierPort
	renderer   ports.RendererPort
	ai         ports.AIPort
	audit      ports.AuditPort

	defaultPrompt string
	maxPixels     int
	auditTimeout  time.Duration
	logger        zerolog.Logger

	ocrSem  chan struct{} // limit OCR concurrency
	auditWG sync.WaitGroup
}

// NewPIIService wires the pipeline. audit may be nil.
func NewPIIService(
	ocr ports.OCRPort,
	classifier ports.ClassifierPort,
	renderer ports.RendererPort,
	ai ports.AIPort,
	audit ports.AuditPort,
	opts Options,
) *PIIService {
	if opts.OCRConcurrency < 1 {
		opts.OCRConcurrency = DefaultOCRConcurrency
	}
	if strings.TrimSpace(opts.DefaultPrompt) == "" {
		opts.DefaultPrompt = DefaultPrompt
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.AuditTimeout <= 0 {
		opts.AuditTimeout = DefaultAuditTimeout
	}
	return &PIIService{
		ocr:           ocr,
		classifier:    classifier,
		renderer:      renderer,
		ai:            ai,
		audit:         audit,
		defaultPrompt: opts.DefaultPrompt,
		maxPixels:     opts.MaxPixels,
		auditTimeout:  opts.AuditTimeout,
		logger:        opts.Logger,
		ocrSem:        make(chan struct{}, opts.OCRConcurrency),
	}
}

type RedactRequest struct {
	Image     []byte
	Prompt    string
	Selection domain.SelectionSet
	// SelectionWarning is set by transports when the raw selection could not be parsed.
	SelectionWarning string
}

func (s *PIIService) Check(ctx context.Context, name string) (bool, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "pii-redact"
	}
	return true, "OK: " + name
}

// Chat forwards a text message to the model.
func (s *PIIService) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.NewMissingInputError("chat", "message")
	}
	reply, err := s.ai.Chat(ctx, message)
	if err != nil {
		return "", domain.NewEngineError("chat", "ai", err)
	}
	return reply, nil
}

// Detect extracts tokens from the image and reports which of them look like PII.
func (s *PIIService) Detect(ctx context.Context, data []byte) (*domain.DetectResult, error) {
	const op = "detect"
	start := time.Now()

	img, err := s.decode(op, data)
	if err != nil {
		return nil, err
	}

	tokens, err := s.extractTokens(ctx, op, img)
	if err != nil {
		return nil, err
	}

	items := s.classifier.Classify(tokens)
	if items == nil {
		items = []domain.PiiItem{}
	}

	counts := countByCategory(items)
	s.logger.Info().
		Str("request_id", domain.RequestIDFrom(ctx)).
		Int("tokens", len(tokens)).
		Int("items", len(items)).
		Interface("categories", counts).
		Dur("latency", time.Since(start)).
		Msg("PII detected")

	s.publish(ctx, domain.AuditEvent{
		Operation:  domain.OperationDetect,
		Tokens:     len(tokens),
		Items:      counts,
		DurationMS: time.Since(start).Milliseconds(),
	})

	return &domain.DetectResult{
		Text:  joinText(tokens),
		Items: items,
		Count: len(items),
	}, nil
}

// RedactAndAnnotate re-runs extraction on the image, blacks out the selected
// token ids and asks the model about the result. Ids refer to the tokens of
// this extraction; they line up with an earlier Detect only if OCR is stable.
func (s *PIIService) RedactAndAnnotate(ctx context.Context, req RedactRequest) (*domain.RedactResult, error) {
	const op = "redact_and_chat"
	start := time.Now()

	img, err := s.decode(op, req.Image)
	if err != nil {
		return nil, err
	}

	tokens, err := s.extractTokens(ctx, op, img)
	if err != nil {
		return nil, err
	}

	rendered, err := s.renderer.Render(img, tokens, req.Selection)
	if err != nil {
		if domain.CodeOf(err) == "" {
			err = domain.NewEncodeError(op, err)
		}
		return nil, err
	}

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = s.defaultPrompt
	}

	b64 := imagecodec.Base64(rendered.PNG)
	reply, err := s.ai.Annotate(ctx, prompt, imagecodec.DataURL(rendered.PNG))
	if err != nil {
		return nil, domain.NewEngineError(op, "ai", err)
	}

	s.logger.Info().
		Str("request_id", domain.RequestIDFrom(ctx)).
		Int("tokens", len(tokens)).
		Int("selected", req.Selection.Len()).
		Int("redacted", rendered.Redacted).
		Bool("selection_warning", req.SelectionWarning != "").
		Dur("latency", time.Since(start)).
		Msg("image redacted")

	s.publish(ctx, domain.AuditEvent{
		Operation:  domain.OperationRedact,
		Tokens:     len(tokens),
		Selected:   req.Selection.Len(),
		Redacted:   rendered.Redacted,
		DurationMS: time.Since(start).Milliseconds(),
	})

	return &domain.RedactResult{
		Reply:            reply,
		ImagePNG:         rendered.PNG,
		ImageBase64:      b64,
		Tokens:           len(tokens),
		Redacted:         rendered.Redacted,
		SelectionWarning: req.SelectionWarning,
	}, nil
}

func (s *PIIService) decode(op string, data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, domain.NewMissingInputError(op, "file")
	}
	img, err := imagecodec.Decode(data, s.maxPixels)
	if err != nil {
		return nil, domain.NewDecodeError(op, err)
	}
	return imagecodec.Normalize(img), nil
}

func (s *PIIService) publish(ctx context.Context, ev domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	ev.RequestID = domain.RequestIDFrom(ctx)
	ev.Timestamp = time.Now().UTC()

	// off the request path: the response never waits on the broker
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	s.auditWG.Add(1)
	go func() {
		defer s.auditWG.Done()
		defer cancel()
		if err := s.audit.Publish(pubCtx, ev); err != nil {
			s.logger.Warn().Err(err).Str("operation", ev.Operation).Msg("audit publish failed")
		}
	}()
}

// Close waits for in-flight audit publishes.
func (s *PIIService) Close() {
	s.auditWG.Wait()
}

func countByCategory(items []domain.PiiItem) map[domain.Category]int {
	counts := make(map[domain.Category]int)
	for _, it := range items {
		counts[it.Type]++
	}
	return counts
}
