package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "jobsystem.v1.JobService"

// JobServiceServer is the server side of jobsystem.v1.JobService. Every
// method takes and returns a google.protobuf.Struct.
type JobServiceServer interface {
	Enqueue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunSync(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTypes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateWorker(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(JobServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(JobServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(JobServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

var jobServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*JobServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Enqueue", JobServiceServer.Enqueue),
		unaryMethod("Status", JobServiceServer.Status),
		unaryMethod("RunSync", JobServiceServer.RunSync),
		unaryMethod("Cancel", JobServiceServer.Cancel),
		unaryMethod("ListTypes", JobServiceServer.ListTypes),
		unaryMethod("Stats", JobServiceServer.Stats),
		unaryMethod("CreateWorker", JobServiceServer.CreateWorker),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobsystem/v1/job_service",
}

// RegisterJobServiceServer attaches srv to s.
func RegisterJobServiceServer(s grpc.ServiceRegistrar, srv JobServiceServer) {
	s.RegisterService(&jobServiceDesc, srv)
}
