package grpc

import (
	"context"

	"google.golang.org/grpc"

	"planguard/internal/model"
)

const (
	reviewServiceName = "planguard.ReviewService"
	eventServiceName  = "planguard.EventService"
)

type reviewServer interface {
	Submit(context.Context, *model.SubmitRequest) (*SubmitResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Approve(context.Context, *DecisionRequest) (*DecisionResponse, error)
	Reject(context.Context, *DecisionRequest) (*DecisionResponse, error)
}

type eventServer interface {
	Publish(context.Context, *EventRequest) (*EventResponse, error)
}

var reviewServiceDesc = grpc.ServiceDesc{
	ServiceName: reviewServiceName,
	HandlerType: (*reviewServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(reviewServiceName, "Submit", reviewServer.Submit),
		unary(reviewServiceName, "List", reviewServer.List),
		unary(reviewServiceName, "Approve", reviewServer.Approve),
		unary(reviewServiceName, "Reject", reviewServer.Reject),
	},
	Streams: []grpc.StreamDesc{},
}

var eventServiceDesc = grpc.ServiceDesc{
	ServiceName: eventServiceName,
	HandlerType: (*eventServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(eventServiceName, "Publish", eventServer.Publish),
	},
	Streams: []grpc.StreamDesc{},
}

// unary builds the method descriptor protoc-gen-go-grpc would otherwise generate.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}
