// Package rpc exposes the gateway over gRPC for callers that prefer it to
// the HTTP surface. The service has one unary method whose request and
// response are google.protobuf.Struct values, so no generated code is
// needed:
//
//	service Gateway {
//	  rpc ProcessEvent(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
//
// Request:  {"hook": {...}, "account_id": 7, "event": {"name": ..., "data": {...}}}
// Response: {"success": ..., "message": ..., "error_kind": ..., "raw_detail": ..., "attempts": ...}
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName        = "helpdesk.gateway.v1.Gateway"
	processEventMethod = "/" + ServiceName + "/ProcessEvent"
)

// GatewayServer is the server API for the Gateway service.
type GatewayServer interface {
	ProcessEvent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Gateway service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ProcessEvent",
			Handler:    processEventHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "helpdesk/gateway/v1/gateway.proto",
}

// Register attaches srv to g.
func Register(g grpc.ServiceRegistrar, srv GatewayServer) {
	g.RegisterService(&ServiceDesc, srv)
}

func processEventHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).ProcessEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: processEventMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).ProcessEvent(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ─── PAYLOAD CODEC ───────────────────────────────────────────────────────────

// toStruct converts a JSON-tagged Go value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal payload: %w", err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("rpc: build struct: %w", err)
	}
	return s, nil
}

// fromStruct decodes a Struct into a JSON-tagged Go value.
func fromStruct(s *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("rpc: read struct: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("rpc: decode payload: %w", err)
	}
	return nil
}
