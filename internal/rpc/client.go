package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
)

// Client calls a remote Gateway service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// ProcessEvent sends req and decodes the gateway Result. A non-nil error
// means the call itself failed; gateway failures come back in the Result.
func (c *Client) ProcessEvent(ctx context.Context, req Request, opts ...grpc.CallOption) (ai.Result, error) {
	in, err := toStruct(req)
	if err != nil {
		return ai.Result{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, processEventMethod, in, out, opts...); err != nil {
		return ai.Result{}, fmt.Errorf("rpc: process event: %w", err)
	}
	var result ai.Result
	if err := fromStruct(out, &result); err != nil {
		return ai.Result{}, err
	}
	return result, nil
}
