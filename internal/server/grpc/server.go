// Package grpc exposes the workflow and tombstone operations over gRPC.
//
// Payloads are google.protobuf.Struct messages holding the record wire shape,
// so the service needs no generated stubs. The service descriptor lives in
// service.go.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/codereg/internal/logging"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/dmitrijs2005/codereg/internal/server/services"
	"google.golang.org/grpc"
)

type workflowSvc interface {
	Save(ctx context.Context, p models.Principal, patch models.RecordPatch) (*services.TransitionResult, error)
	Submit(ctx context.Context, p models.Principal, patch models.RecordPatch) (*services.TransitionResult, error)
	Announce(ctx context.Context, p models.Principal, patch models.RecordPatch) (*services.TransitionResult, error)
	Approve(ctx context.Context, p models.Principal, codeID int64) (*services.TransitionResult, error)
	Get(ctx context.Context, p models.Principal, codeID int64) (*models.Record, error)
}

type tombstoneSvc interface {
	Hide(ctx context.Context, p models.Principal, codeID int64, reason string) (*models.Tombstone, error)
	Unhide(ctx context.Context, p models.Principal, codeID int64, reason string) (*models.Tombstone, error)
	Delete(ctx context.Context, p models.Principal, codeID int64, reason string) (*models.Tombstone, error)
	History(ctx context.Context, p models.Principal, codeID int64) ([]*models.Tombstone, error)
}

type GRPCServer struct {
	address    string
	workflow   workflowSvc
	tombstones tombstoneSvc
	logger     logging.Logger
	jwtSecret  []byte
}

func NewGRPCServer(a string, l logging.Logger, ws workflowSvc, ts tombstoneSvc, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		workflow:   ws,
		tombstones: ts,
		jwtSecret:  []byte(secretKey),
	}, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	// registers service
	srv.RegisterService(&WorkflowServiceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
