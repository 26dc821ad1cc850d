package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "codereg.v1.Workflow"

// WorkflowServer is the handler set bound to WorkflowServiceDesc.
type WorkflowServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Save(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Announce(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Approve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Hide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Unhide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(WorkflowServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	fullMethod := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(WorkflowServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(WorkflowServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the invoke path of a method of the workflow service.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var WorkflowServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorkflowServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", WorkflowServer.Ping),
		unary("Save", WorkflowServer.Save),
		unary("Submit", WorkflowServer.Submit),
		unary("Announce", WorkflowServer.Announce),
		unary("Approve", WorkflowServer.Approve),
		unary("Get", WorkflowServer.Get),
		unary("Hide", WorkflowServer.Hide),
		unary("Unhide", WorkflowServer.Unhide),
		unary("Delete", WorkflowServer.Delete),
		unary("History", WorkflowServer.History),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "codereg/v1/workflow",
}
