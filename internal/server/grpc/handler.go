package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/dmitrijs2005/codereg/internal/server/services"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return structpb.NewStruct(map[string]any{"status": "OK"})

}

func (s *GRPCServer) Save(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, "save", req, s.workflow.Save)
}

func (s *GRPCServer) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, "submit", req, s.workflow.Submit)
}

func (s *GRPCServer) Announce(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, "announce", req, s.workflow.Announce)
}

func (s *GRPCServer) Approve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, ref, err := s.request(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := s.workflow.Approve(ctx, p, ref.CodeID)
	if err != nil {
		return nil, s.toStatus(ctx, "approve", err)
	}
	return s.respond(ctx, newTransitionView(res))
}

func (s *GRPCServer) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, ref, err := s.request(ctx, req)
	if err != nil {
		return nil, err
	}

	rec, err := s.workflow.Get(ctx, p, ref.CodeID)
	if err != nil {
		return nil, s.toStatus(ctx, "get", err)
	}
	return s.respond(ctx, recordView{Record: rec})
}

func (s *GRPCServer) Hide(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.tombstone(ctx, "hide", req, s.tombstones.Hide)
}

func (s *GRPCServer) Unhide(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.tombstone(ctx, "unhide", req, s.tombstones.Unhide)
}

func (s *GRPCServer) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.tombstone(ctx, "delete", req, s.tombstones.Delete)
}

func (s *GRPCServer) History(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, ref, err := s.request(ctx, req)
	if err != nil {
		return nil, err
	}

	events, err := s.tombstones.History(ctx, p, ref.CodeID)
	if err != nil {
		return nil, s.toStatus(ctx, "history", err)
	}
	out := historyView{Events: make([]tombstoneView, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, newTombstoneView(e))
	}
	return s.respond(ctx, out)
}

type editFunc func(context.Context, models.Principal, models.RecordPatch) (*services.TransitionResult, error)

func (s *GRPCServer) transition(ctx context.Context, op string, req *structpb.Struct, edit editFunc) (*structpb.Struct, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	var patch models.RecordPatch
	if err := decode(req, &patch); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed record: %v", err)
	}

	res, err := edit(ctx, p, patch)
	if err != nil {
		return nil, s.toStatus(ctx, op, err)
	}
	if res.Partial() {
		s.logger.Warn(ctx, "transition committed with sync warnings", "op", op, "code_id", res.Record.CodeID,
			"warnings", len(res.SyncErrors))
	}
	return s.respond(ctx, newTransitionView(res))
}

type tombstoneFunc func(context.Context, models.Principal, int64, string) (*models.Tombstone, error)

func (s *GRPCServer) tombstone(ctx context.Context, op string, req *structpb.Struct, mark tombstoneFunc) (*structpb.Struct, error) {
	p, ref, err := s.request(ctx, req)
	if err != nil {
		return nil, err
	}

	event, err := mark(ctx, p, ref.CodeID, ref.Reason)
	if err != nil {
		return nil, s.toStatus(ctx, op, err)
	}
	return s.respond(ctx, newTombstoneView(event))
}

// request extracts the caller and the addressed record.
func (s *GRPCServer) request(ctx context.Context, req *structpb.Struct) (models.Principal, recordRef, error) {
	var ref recordRef
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return p, ref, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if err := decode(req, &ref); err != nil {
		return p, ref, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if ref.CodeID <= 0 {
		return p, ref, status.Error(codes.InvalidArgument, "code_id is required")
	}
	return p, ref, nil
}

func (s *GRPCServer) respond(ctx context.Context, v any) (*structpb.Struct, error) {
	out, err := encode(v)
	if err != nil {
		s.logger.Error(ctx, "encode response", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// toStatus maps the registry error taxonomy onto gRPC codes. Storage details
// stay in the log.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		st := status.New(codes.InvalidArgument, ve.Error())
		br := &errdetails.BadRequest{}
		for _, m := range ve.Messages {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{Description: m})
		}
		if detailed, derr := st.WithDetails(br); derr == nil {
			st = detailed
		}
		return st.Err()
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "record not found")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, common.ErrResourceContention):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, common.ErrVersionConflict), errors.Is(err, common.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "op", op, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
