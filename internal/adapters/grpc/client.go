package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls RedactionService over an existing connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) Check(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	out := new(HealthCheckResponse)
	if err := c.invoke(ctx, "Check", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Chat(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*ChatResponse, error) {
	out := new(ChatResponse)
	if err := c.invoke(ctx, "Chat", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Detect(ctx context.Context, in *DetectRequest, opts ...grpc.CallOption) (*DetectResponse, error) {
	out := new(DetectResponse)
	if err := c.invoke(ctx, "Detect", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RedactAndChat(ctx context.Context, in *RedactAndChatRequest, opts ...grpc.CallOption) (*RedactAndChatResponse, error) {
	out := new(RedactAndChatResponse)
	if err := c.invoke(ctx, "RedactAndChat", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
