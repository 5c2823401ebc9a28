package grpc

import (
	"context"
	"fmt"
	"time"
)

// Bus publishes events to a remote EventService over gRPC.
// Used when BusProvider == "grpc" in config.
type Bus struct {
	client  *Client
	timeout time.Duration
}

// NewBusFromAddr dials the remote EventService and returns a Bus and a cleanup function.
func NewBusFromAddr(addr string) (*Bus, func(), error) {
	client, cleanup, err := NewClientFromAddr(addr)
	if err != nil {
		return nil, nil, err
	}
	return NewBus(client), cleanup, nil
}

func NewBus(client *Client) *Bus {
	return &Bus{client: client, timeout: 5 * time.Second}
}

// Publish sends an event to the remote EventService.
func (b *Bus) Publish(topic string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	res, err := b.client.Publish(ctx, topic, data)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("grpc bus: event %s not recorded", topic)
	}
	return nil
}
