package grpc

import (
	"context"
	"strings"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/ports"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/usecase"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "pii.v1.RedactionService"

type Service interface {
	ports.HealthPort
	Chat(ctx context.Context, message string) (string, error)
	Detect(ctx context.Context, data []byte) (*domain.DetectResult, error)
	RedactAndAnnotate(ctx context.Context, req usecase.RedactRequest) (*domain.RedactResult, error)
}

type RedactionServer interface {
	Check(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
	Chat(context.Context, *ChatRequest) (*ChatResponse, error)
	Detect(context.Context, *DetectRequest) (*DetectResponse, error)
	RedactAndChat(context.Context, *RedactAndChatRequest) (*RedactAndChatResponse, error)
}

// Handler adapts the pipeline to RedactionServer.
type Handler struct {
	svc    Service
	logger zerolog.Logger
}

func NewHandler(svc Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Check(ctx context.Context, req *HealthCheckRequest) (*HealthCheckResponse, error) {
	healthy, msg := h.svc.Check(ctx, req.Name)
	return &HealthCheckResponse{Healthy: healthy, Message: msg}, nil
}

func (h *Handler) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	reply, err := h.svc.Chat(ctx, req.Message)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ChatResponse{Reply: reply}, nil
}

func (h *Handler) Detect(ctx context.Context, req *DetectRequest) (*DetectResponse, error) {
	if len(req.ImageData) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image_data is empty")
	}

	res, err := h.svc.Detect(ctx, req.ImageData)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DetectResponse{Text: res.Text, Items: res.Items, Count: res.Count}, nil
}

func (h *Handler) RedactAndChat(ctx context.Context, req *RedactAndChatRequest) (*RedactAndChatResponse, error) {
	if len(req.ImageData) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image_data is empty")
	}

	in := usecase.RedactRequest{Image: req.ImageData, Prompt: strings.TrimSpace(req.Message)}
	sel, err := domain.ParseSelection(req.SelectedIDs)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ignoring malformed selected_ids")
		in.SelectionWarning = err.Error()
	}
	in.Selection = sel

	res, err := h.svc.RedactAndAnnotate(ctx, in)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RedactAndChatResponse{
		Reply:            res.Reply,
		RedactedImagePNG: res.ImagePNG,
		Redacted:         res.Redacted,
		SelectionWarning: res.SelectionWarning,
	}, nil
}

func toStatus(err error) error {
	switch domain.CodeOf(err) {
	case domain.ErrorMissingInput, domain.ErrorDecodeFailure:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.ErrorEngineFailure:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// Register adds the redaction service to s.
func Register(s *grpc.Server, impl RedactionServer) {
	s.RegisterService(&ServiceDesc, impl)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RedactionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Check", Handler: checkHandler},
		{MethodName: "Chat", Handler: chatHandler},
		{MethodName: "Detect", Handler: detectHandler},
		{MethodName: "RedactAndChat", Handler: redactAndChatHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pii/v1/redaction.json",
}

func checkHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RedactionServer).Check(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Check"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedactionServer).Check(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func chatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ChatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RedactionServer).Chat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Chat"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedactionServer).Chat(ctx, req.(*ChatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func detectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DetectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RedactionServer).Detect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Detect"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedactionServer).Detect(ctx, req.(*DetectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func redactAndChatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RedactAndChatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RedactionServer).RedactAndChat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/RedactAndChat"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RedactionServer).RedactAndChat(ctx, req.(*RedactAndChatRequest))
	}
	return interceptor(ctx, in, info, handler)
}
