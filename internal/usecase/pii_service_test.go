package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/classifier"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/render"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/pkg/imagecodec"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOCR lays words out left to right, 40px apart, 10px from the top.
type fakeOCR struct {
	words []string
	err   error
	calls atomic.Int32
}

func (f *fakeOCR) Recognize(ctx context.Context, img image.Image) (*domain.Recognition, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	rec := &domain.Recognition{}
	for i, w := range f.words {
		rec.Words = append(rec.Words, w)
		rec.Boxes = append(rec.Boxes, domain.BBox{Left: 5 + 40*i, Top: 10, Width: 30, Height: 12})
	}
	return rec, nil
}

type fakeAI struct {
	mu       sync.Mutex
	reply    string
	err      error
	prompt   string
	imageURL string
	message  string
}

func (f *fakeAI) Chat(ctx context.Context, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = message
	return f.reply, f.err
}

func (f *fakeAI) Annotate(ctx context.Context, prompt, imageDataURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompt = prompt
	f.imageURL = imageDataURL
	return f.reply, f.err
}

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
}

func (f *fakeAudit) Publish(ctx context.Context, ev domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeAudit) published() []domain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditEvent(nil), f.events...)
}

func (f *fakeAudit) Close() error { return nil }

func pngImage(t *testing.T, w, h int) ([]byte, *image.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 250, G: uint8(200 + y%50), B: uint8(x % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes(), img
}

func newService(ocr *fakeOCR, ai *fakeAI, audit *fakeAudit) *PIIService {
	var port ports.AuditPort
	if audit != nil {
		port = audit
	}
	return NewPIIService(ocr, classifier.New(), render.New(), ai, port, Options{Logger: zerolog.Nop()})
}

func decodeResult(t *testing.T, res *domain.RedactResult) *image.NRGBA {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	require.NoError(t, err)
	assert.Equal(t, res.ImagePNG, raw)
	img, err := imagecodec.Decode(raw, 0)
	require.NoError(t, err)
	return imagecodec.Normalize(img)
}

func TestDetect(t *testing.T) {
	data, _ := pngImage(t, 200, 40)
	ocr := &fakeOCR{words: []string{"Contact:", "", "john@x.co", "today"}}
	audit := &fakeAudit{}
	svc := newService(ocr, &fakeAI{}, audit)

	ctx := domain.WithRequestID(context.Background(), "req-42")
	res, err := svc.Detect(ctx, data)
	require.NoError(t, err)

	assert.Equal(t, "Contact: john@x.co today", res.Text)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, domain.PiiItem{
		ID:   1,
		Type: domain.CategoryEmail,
		Text: "john@x.co",
		BBox: domain.BBox{Left: 85, Top: 10, Width: 30, Height: 12},
	}, res.Items[0])
	assert.EqualValues(t, 1, ocr.calls.Load())

	svc.Close()
	events := audit.published()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "req-42", ev.RequestID)
	assert.Equal(t, domain.OperationDetect, ev.Operation)
	assert.Equal(t, 3, ev.Tokens)
	assert.Equal(t, map[domain.Category]int{domain.CategoryEmail: 1}, ev.Items)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestDetectNoMatches(t *testing.T) {
	data, _ := pngImage(t, 100, 40)
	res, err := newService(&fakeOCR{words: []string{"nothing", "here"}}, &fakeAI{}, nil).Detect(context.Background(), data)
	require.NoError(t, err)

	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Count)
}

func TestDetectErrors(t *testing.T) {
	data, _ := pngImage(t, 50, 20)

	tests := []struct {
		name  string
		input []byte
		ocr   *fakeOCR
		want  domain.ErrorCode
	}{
		{name: "missing file", input: nil, ocr: &fakeOCR{}, want: domain.ErrorMissingInput},
		{name: "not an image", input: []byte("plain text"), ocr: &fakeOCR{}, want: domain.ErrorDecodeFailure},
		{name: "ocr failure", input: data, ocr: &fakeOCR{err: errors.New("tesseract crashed")}, want: domain.ErrorEngineFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &fakeAudit{}
			svc := newService(tt.ocr, &fakeAI{}, audit)
			_, err := svc.Detect(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.CodeOf(err))
			svc.Close()
			assert.Empty(t, audit.published())
		})
	}
}

func TestDetectAuditFailureIsIgnored(t *testing.T) {
	data, _ := pngImage(t, 100, 40)
	svc := newService(&fakeOCR{words: []string{"john@x.co"}}, &fakeAI{}, &fakeAudit{err: errors.New("kafka down")})

	res, err := svc.Detect(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	svc.Close()
}

func TestRedactEmptySelectionPassesImageThrough(t *testing.T) {
	data, src := pngImage(t, 200, 40)
	ai := &fakeAI{reply: "looks fine"}
	svc := newService(&fakeOCR{words: []string{"john@x.co"}}, ai, nil)

	res, err := svc.RedactAndAnnotate(context.Background(), RedactRequest{Image: data})
	require.NoError(t, err)

	assert.Equal(t, "looks fine", res.Reply)
	assert.Zero(t, res.Redacted)
	assert.Equal(t, src.Pix, decodeResult(t, res).Pix)
	assert.Equal(t, DefaultPrompt, ai.prompt)
	assert.Equal(t, "data:image/png;base64,"+res.ImageBase64, ai.imageURL)
}

func TestRedactCustomPrompt(t *testing.T) {
	data, _ := pngImage(t, 100, 40)
	ai := &fakeAI{reply: "ok"}
	svc := NewPIIService(&fakeOCR{}, classifier.New(), render.New(), ai, nil,
		Options{DefaultPrompt: "Describe it.", Logger: zerolog.Nop()})

	_, err := svc.RedactAndAnnotate(context.Background(), RedactRequest{Image: data, Prompt: "  "})
	require.NoError(t, err)
	assert.Equal(t, "Describe it.", ai.prompt)

	_, err = svc.RedactAndAnnotate(context.Background(), RedactRequest{Image: data, Prompt: "What is this?"})
	require.NoError(t, err)
	assert.Equal(t, "What is this?", ai.prompt)
}

func TestDetectThenRedactRoundTrip(t *testing.T) {
	data, src := pngImage(t, 200, 40)
	ocr := &fakeOCR{words: []string{"Mail", "john@x.co", "or", "555-123-4567"}}
	audit := &fakeAudit{}
	svc := newService(ocr, &fakeAI{reply: "redacted"}, audit)

	det, err := svc.Detect(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 2, det.Count)

	ids := make([]int, 0, len(det.Items))
	for _, it := range det.Items {
		ids = append(ids, it.ID)
	}

	res, err := svc.RedactAndAnnotate(context.Background(), RedactRequest{
		Image:     data,
		Selection: domain.NewSelection(ids...),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Redacted)
	assert.EqualValues(t, 2, ocr.calls.Load(), "redact must run its own extraction")

	out := decodeResult(t, res)
	black := color.NRGBA{A: 0xff}
	inItem := func(p image.Point) bool {
		for _, it := range det.Items {
			if p.In(it.BBox.Rect()) {
				return true
			}
		}
		return false
	}
	for y := 0; y < 40; y++ {
		for x := 0; x < 200; x++ {
			if inItem(image.Pt(x, y)) {
				require.Equal(t, black, out.NRGBAAt(x, y))
			} else {
				require.Equal(t, src.NRGBAAt(x, y), out.NRGBAAt(x, y))
			}
		}
	}

	svc.Close()
	events := audit.published()
	require.Len(t, events, 2)
	var redact domain.AuditEvent
	for _, ev := range events {
		if ev.Operation == domain.OperationRedact {
			redact = ev
		}
	}
	assert.Equal(t, domain.OperationRedact, redact.Operation)
	assert.Equal(t, 2, redact.Selected)
	assert.Equal(t, 2, redact.Redacted)
}

func TestRedactMalformedSelectionProceeds(t *testing.T) {
	data, src := pngImage(t, 200, 40)
	sel, perr := domain.ParseSelection("not json")
	require.Error(t, perr)

	svc := newService(&fakeOCR{words: []string{"john@x.co"}}, &fakeAI{reply: "ok"}, nil)
	res, err := svc.RedactAndAnnotate(context.Background(), RedactRequest{
		Image:            data,
		Selection:        sel,
		SelectionWarning: perr.Error(),
	})
	require.NoError(t, err)

	assert.Equal(t, src.Pix, decodeResult(t, res).Pix)
	assert.True(t, strings.HasPrefix(res.SelectionWarning, "selected_ids is not a JSON array"))
}

func TestRedactErrors(t *testing.T) {
	data, _ := pngImage(t, 50, 20)

	t.Run("ai failure", func(t *testing.T) {
		svc := newService(&fakeOCR{}, &fakeAI{err: errors.New("rate limited")}, nil)
		_, err := svc.RedactAndAnnotate(context.Background(), RedactRequest{Image: data})
		assert.Equal(t, domain.ErrorEngineFailure, domain.CodeOf(err))
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("decode failure", func(t *testing.T) {
		_, err := newService(&fakeOCR{}, &fakeAI{}, nil).RedactAndAnnotate(context.Background(), RedactRequest{Image: []byte{1, 2, 3}})
		assert.Equal(t, domain.ErrorDecodeFailure, domain.CodeOf(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := newService(&fakeOCR{}, &fakeAI{}, nil).RedactAndAnnotate(context.Background(), RedactRequest{})
		assert.Equal(t, domain.ErrorMissingInput, domain.CodeOf(err))
	})
}

func TestNameScenarioTokenization(t *testing.T) {
	data, _ := pngImage(t, 240, 40)

	t.Run("per word tokens", func(t *testing.T) {
		// per-word tokens with the email already free of punctuation
		svc := newService(&fakeOCR{words: []string{"John", "Smith,", "john@x.co", "555-123-4567"}}, &fakeAI{}, nil)
		res, err := svc.Detect(context.Background(), data)
		require.NoError(t, err)

		require.Equal(t, 2, res.Count)
		assert.Equal(t, domain.CategoryEmail, res.Items[0].Type)
		assert.Equal(t, domain.CategoryPhone, res.Items[1].Type)
	})

	t.Run("trailing comma hides the email", func(t *testing.T) {
		// "John Smith, john@x.co, 555-123-4567" as tesseract splits it
		svc := newService(&fakeOCR{words: []string{"John", "Smith,", "john@x.co,", "555-123-4567"}}, &fakeAI{}, nil)
		res, err := svc.Detect(context.Background(), data)
		require.NoError(t, err)

		require.Equal(t, 1, res.Count)
		assert.Equal(t, domain.CategoryPhone, res.Items[0].Type)
		assert.Equal(t, 3, res.Items[0].ID)
	})

	t.Run("engine joins the name", func(t *testing.T) {
		svc := newService(&fakeOCR{words: []string{"John Smith", "john@x.co", "555-123-4567"}}, &fakeAI{}, nil)
		res, err := svc.Detect(context.Background(), data)
		require.NoError(t, err)

		require.Equal(t, 3, res.Count)
		assert.Equal(t, domain.CategoryName, res.Items[0].Type)
		assert.Equal(t, "John Smith", res.Items[0].Text)
		assert.Equal(t, 0, res.Items[0].ID)
	})
}

func TestChat(t *testing.T) {
	ai := &fakeAI{reply: "hello"}
	svc := newService(&fakeOCR{}, ai, nil)

	reply, err := svc.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, "hi", ai.message)

	_, err = svc.Chat(context.Background(), "   ")
	assert.Equal(t, domain.ErrorMissingInput, domain.CodeOf(err))
	assert.EqualError(t, err, "message is required")

	ai.err = errors.New("boom")
	_, err = svc.Chat(context.Background(), "hi")
	assert.Equal(t, domain.ErrorEngineFailure, domain.CodeOf(err))
}

func TestCheck(t *testing.T) {
	svc := newService(&fakeOCR{}, &fakeAI{}, nil)

	ok, msg := svc.Check(context.Background(), "")
	assert.True(t, ok)
	assert.Equal(t, "OK: pii-redact", msg)

	_, msg = svc.Check(context.Background(), " probe ")
	assert.Equal(t, "OK: probe", msg)
}

// blockingOCR parks every call until release is closed.
type blockingOCR struct {
	inflight, peak atomic.Int32
	release        chan struct{}
}

func (b *blockingOCR) Recognize(ctx context.Context, img image.Image) (*domain.Recognition, error) {
	n := b.inflight.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-b.release
	b.inflight.Add(-1)
	return &domain.Recognition{}, nil
}

func TestOCRConcurrencyIsBounded(t *testing.T) {
	data, _ := pngImage(t, 20, 20)
	ocr := &blockingOCR{release: make(chan struct{})}
	svc := NewPIIService(ocr, classifier.New(), render.New(), &fakeAI{}, nil,
		Options{OCRConcurrency: 2, Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Detect(context.Background(), data)
			assert.NoError(t, err)
		}()
	}

	assert.Eventually(t, func() bool { return ocr.inflight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(ocr.release)
	wg.Wait()
	assert.EqualValues(t, 2, ocr.peak.Load())
}

func TestOCRWaitHonoursContext(t *testing.T) {
	data, _ := pngImage(t, 20, 20)
	ocr := &blockingOCR{release: make(chan struct{})}
	defer close(ocr.release)
	svc := NewPIIService(ocr, classifier.New(), render.New(), &fakeAI{}, nil,
		Options{OCRConcurrency: 1, Logger: zerolog.Nop()})

	go func() { _, _ = svc.Detect(context.Background(), data) }()
	require.Eventually(t, func() bool { return ocr.inflight.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Detect(ctx, data)
	assert.Equal(t, domain.ErrorEngineFailure, domain.CodeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilAuditPort(t *testing.T) {
	data, _ := pngImage(t, 100, 40)
	svc := NewPIIService(&fakeOCR{words: []string{"john@x.co"}}, classifier.New(), render.New(), &fakeAI{reply: "ok"}, nil,
		Options{Logger: zerolog.Nop()})

	det, err := svc.Detect(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, det.Count)

	res, err := svc.RedactAndAnnotate(context.Background(), RedactRequest{Image: data, Selection: domain.NewSelection(0)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Redacted)
	svc.Close()
}

// stuckAudit ignores its context, like a writer retrying against a dead broker.
type stuckAudit struct {
	release chan struct{}
	done    atomic.Int32
}

func (s *stuckAudit) Publish(ctx context.Context, ev domain.AuditEvent) error {
	<-s.release
	s.done.Add(1)
	return nil
}

func (s *stuckAudit) Close() error { return nil }

func TestSlowAuditDoesNotDelayResponse(t *testing.T) {
	data, _ := pngImage(t, 100, 40)
	audit := &stuckAudit{release: make(chan struct{})}
	svc := NewPIIService(&fakeOCR{words: []string{"john@x.co"}}, classifier.New(), render.New(), &fakeAI{reply: "ok"}, audit,
		Options{Logger: zerolog.Nop()})

	start := time.Now()
	res, err := svc.Detect(context.Background(), data)
	require.NoError(t, err)
	_, err = svc.RedactAndAnnotate(context.Background(), RedactRequest{Image: data})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, res.Count)
	assert.Zero(t, audit.done.Load())

	close(audit.release)
	svc.Close()
	assert.EqualValues(t, 2, audit.done.Load())
}

// ctxAudit blocks until its context ends and records why.
type ctxAudit struct {
	mu        sync.Mutex
	err       error
	requestID string
}

func (c *ctxAudit) Publish(ctx context.Context, ev domain.AuditEvent) error {
	<-ctx.Done()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = ctx.Err()
	c.requestID = domain.RequestIDFrom(ctx)
	return ctx.Err()
}

func (c *ctxAudit) Close() error { return nil }

func TestAuditOutlivesRequestButHasDeadline(t *testing.T) {
	data, _ := pngImage(t, 100, 40)
	audit := &ctxAudit{}
	svc := NewPIIService(&fakeOCR{words: []string{"john@x.co"}}, classifier.New(), render.New(), &fakeAI{}, audit,
		Options{AuditTimeout: 30 * time.Millisecond, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(domain.WithRequestID(context.Background(), "req-7"))
	_, err := svc.Detect(ctx, data)
	require.NoError(t, err)
	cancel()

	svc.Close()
	audit.mu.Lock()
	defer audit.mu.Unlock()
	assert.ErrorIs(t, audit.err, context.DeadlineExceeded)
	assert.Equal(t, "req-7", audit.requestID)
}

func TestDetectRejectsOversizedImage(t *testing.T) {
	data, _ := pngImage(t, 20, 20)
	ocr := &fakeOCR{words: []string{"john@x.co"}}
	svc := NewPIIService(ocr, classifier.New(), render.New(), &fakeAI{}, nil,
		Options{MaxPixels: 399, Logger: zerolog.Nop()})

	_, err := svc.Detect(context.Background(), data)
	assert.Equal(t, domain.ErrorDecodeFailure, domain.CodeOf(err))
	assert.ErrorIs(t, err, imagecodec.ErrTooLarge)

	_, err = svc.RedactAndAnnotate(context.Background(), RedactRequest{Image: data})
	assert.Equal(t, domain.ErrorDecodeFailure, domain.CodeOf(err))
	assert.Zero(t, ocr.calls.Load())

	svc = NewPIIService(ocr, classifier.New(), render.New(), &fakeAI{}, nil,
		Options{MaxPixels: 400, Logger: zerolog.Nop()})
	_, err = svc.Detect(context.Background(), data)
	assert.NoError(t, err)
}
