package rpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/store"
)

// Server implements GatewayServer on top of an ai.Processor.
type Server struct {
	processor     ai.Processor
	conversations store.TurnSource
	defaults      ai.ProviderConfig
	logger        *slog.Logger
}

// NewServer returns a Server. conversations may be nil.
func NewServer(processor ai.Processor, conversations store.TurnSource, defaults ai.ProviderConfig, logger *slog.Logger) *Server {
	return &Server{
		processor:     processor,
		conversations: conversations,
		defaults:      defaults,
		logger:        logger,
	}
}

// ProcessEvent decodes the request, runs the event and encodes the Result.
// Gateway failures are part of the response, not gRPC errors; only a request
// that cannot be decoded is rejected with InvalidArgument.
func (s *Server) ProcessEvent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req Request
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ev, err := store.ResolveConversation(ctx, s.conversations, req.AccountID, req.Event)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, status.Error(codes.NotFound, "conversation not found")
	case err != nil:
		s.logger.Error("rpc: resolve conversation", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	result := s.processor.ProcessEvent(ctx, req.Hook.providerConfig(s.defaults), ev)

	out, err := toStruct(result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// LoggingInterceptor logs each unary call with method, code, and duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
