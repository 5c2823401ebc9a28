package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"planguard/internal/model"
)

// Client calls a remote ReviewService and EventService.
type Client struct {
	conn *grpc.ClientConn
}

// NewClientFromAddr dials addr and returns a Client and a cleanup function.
func NewClientFromAddr(addr string, opts ...grpc.DialOption) (*Client, func(), error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return &Client{conn: conn}, func() { _ = conn.Close() }, nil
}

func (c *Client) Submit(ctx context.Context, req model.SubmitRequest) (*SubmitResponse, error) {
	out := new(SubmitResponse)
	err := c.conn.Invoke(ctx, "/"+reviewServiceName+"/Submit", &req, out)
	return out, err
}

func (c *Client) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	out := new(ListResponse)
	err := c.conn.Invoke(ctx, "/"+reviewServiceName+"/List", &req, out)
	return out, err
}

func (c *Client) Approve(ctx context.Context, requestID string) (*DecisionResponse, error) {
	out := new(DecisionResponse)
	err := c.conn.Invoke(ctx, "/"+reviewServiceName+"/Approve", &DecisionRequest{RequestID: requestID}, out)
	return out, err
}

func (c *Client) Reject(ctx context.Context, requestID string) (*DecisionResponse, error) {
	out := new(DecisionResponse)
	err := c.conn.Invoke(ctx, "/"+reviewServiceName+"/Reject", &DecisionRequest{RequestID: requestID}, out)
	return out, err
}

func (c *Client) Publish(ctx context.Context, topic string, payload []byte) (*EventResponse, error) {
	out := new(EventResponse)
	err := c.conn.Invoke(ctx, "/"+eventServiceName+"/Publish", &EventRequest{Topic: topic, Payload: payload}, out)
	return out, err
}
