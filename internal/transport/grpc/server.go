package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"planguard/internal/model"
	"planguard/internal/service"
)

// Server exposes the Review Surface contract and the event sink over gRPC.
type Server struct {
	svc  service.PaymentService
	srv  *grpc.Server
	addr string
}

func NewServer(addr string, svc service.PaymentService) *Server {
	s := &Server{svc: svc, addr: addr, srv: grpc.NewServer()}
	s.srv.RegisterService(&reviewServiceDesc, s)
	s.srv.RegisterService(&eventServiceDesc, s)
	return s
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server is running", "addr", lis.Addr().String())
	return s.srv.Serve(lis)
}

func (s *Server) Stop(ctx context.Context) error {
	s.srv.GracefulStop()
	return nil
}

func (s *Server) Submit(ctx context.Context, req *model.SubmitRequest) (*SubmitResponse, error) {
	res, err := s.svc.SubmitRequest(ctx, *req)
	if err != nil {
		failure, err := toFailure(err)
		if err != nil {
			return nil, err
		}
		return &SubmitResponse{Success: false, Failure: failure}, nil
	}
	return &SubmitResponse{Success: true, Request: res}, nil
}

func (s *Server) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	var (
		reqs []model.PaymentRequest
		err  error
	)
	if req.UserID != "" {
		reqs, err = s.svc.ListUserRequests(ctx, req.UserID)
	} else {
		reqs, err = s.svc.ListRequests(ctx, req.Status)
	}
	if errors.Is(err, model.ErrInvalidRequest) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return &ListResponse{Requests: reqs}, nil
}

func (s *Server) Approve(ctx context.Context, req *DecisionRequest) (*DecisionResponse, error) {
	return decision(s.svc.Approve(ctx, req.RequestID))
}

func (s *Server) Reject(ctx context.Context, req *DecisionRequest) (*DecisionResponse, error) {
	return decision(s.svc.Reject(ctx, req.RequestID))
}

func decision(res *model.DecisionResult, err error) (*DecisionResponse, error) {
	if err != nil {
		failure, err := toFailure(err)
		if err != nil {
			return nil, err
		}
		return &DecisionResponse{Success: false, Failure: failure}, nil
	}
	return &DecisionResponse{Success: true, Result: res}, nil
}

// Publish receives lifecycle events from remote publishers and records them.
func (s *Server) Publish(ctx context.Context, req *EventRequest) (*EventResponse, error) {
	var event model.Event
	if err := json.Unmarshal(req.Payload, &event); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode event: %v", err)
	}
	if event.Topic == "" {
		event.Topic = req.Topic
	}
	if err := s.svc.RecordEvent(ctx, event); err != nil {
		slog.Error("grpc: failed to record event", "topic", req.Topic, "error", err)
		return &EventResponse{Success: false}, nil
	}
	return &EventResponse{Success: true}, nil
}

// toFailure converts expected outcomes into a Failure. Anything else is a
// storage fault and comes back as a gRPC status error.
func toFailure(err error) (*Failure, error) {
	var (
		tb *model.TemporarilyBannedError
		rl *model.RateLimitedError
		nb *model.NewlyBannedError
	)
	f := &Failure{Message: err.Error()}
	switch {
	case errors.Is(err, model.ErrPermanentlyBanned):
		f.Code, f.Permanent = "permanently_banned", true
	case errors.As(err, &nb):
		f.Code, f.BanLevel, f.Permanent = "newly_banned", nb.Level, nb.Permanent
	case errors.As(err, &tb):
		f.Code, f.DaysRemaining = "banned", tb.DaysRemaining
	case errors.As(err, &rl):
		f.Code, f.RetryAfterMS = "rate_limited", rl.RetryAfter.Milliseconds()
	case errors.Is(err, model.ErrRequestNotFound):
		f.Code = "not_found"
	case errors.Is(err, model.ErrAlreadyProcessed):
		f.Code = "already_processed"
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrUnknownItem):
		f.Code = "invalid_request"
	default:
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return f, nil
}
