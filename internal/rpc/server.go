package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	"github.com/anvil-platform/provisioner/internal/manifest"
	"github.com/anvil-platform/provisioner/internal/provision"
	"github.com/anvil-platform/provisioner/internal/repository"
	"github.com/anvil-platform/provisioner/internal/solver"
)

// Server answers Resolve calls against the ResourceManifests of the requested
// namespace. It never installs anything.
type Server struct {
	reader     client.Reader
	solver     solver.Solver
	repos      []repository.Repository
	engineOpts []provision.Option
	logger     logr.Logger
}

var _ ProvisionerServer = (*Server)(nil)

type ServerOption func(*Server)

func WithSolver(s solver.Solver) ServerOption {
	return func(srv *Server) { srv.solver = s }
}

// WithRepositories adds repositories consulted after the namespace manifests.
func WithRepositories(repos ...repository.Repository) ServerOption {
	return func(srv *Server) { srv.repos = append(srv.repos, repos...) }
}

func WithEngineOptions(opts ...provision.Option) ServerOption {
	return func(srv *Server) { srv.engineOpts = append(srv.engineOpts, opts...) }
}

func WithLogger(l logr.Logger) ServerOption {
	return func(srv *Server) { srv.logger = l }
}

func NewServer(reader client.Reader, opts ...ServerOption) *Server {
	s := &Server{
		reader: reader,
		solver: solver.NewGreedy(),
		logger: ctrl.Log.WithName("rpc"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Resolve(ctx context.Context, in *structpb.Struct) (out *structpb.Struct, err error) {
	start := time.Now()
	defer func() {
		rpcResolveDuration.Observe(time.Since(start).Seconds())
		rpcResolveTotal.WithLabelValues(status.Code(err).String()).Inc()
	}()

	req, err := DecodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	logger := s.logger.WithValues("requestId", req.RequestID, "namespace", req.Namespace)
	ctx = logr.NewContext(ctx, logger)

	if req.Namespace == "" {
		return nil, status.Error(codes.InvalidArgument, ErrMissingNamespace.Error())
	}
	if len(req.Requirements) == 0 {
		return nil, status.Error(codes.InvalidArgument, ErrMissingRequirements.Error())
	}
	reqs, err := manifest.ToRequirements(req.Requirements)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	cat, err := manifest.Load(ctx, s.reader, req.Namespace)
	if err != nil {
		logger.Error(err, "failed to load catalog")
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	result, err := provision.New(s.solver, cat.Chain(s.repos...), s.engineOpts...).Resolve(ctx, cat.Environment, reqs)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := &Response{RequestID: req.RequestID, Mapping: make(map[string]string)}
	for _, res := range result.Resources() {
		resp.Resources = append(resp.Resources, cat.ObjectName(res))
	}
	for i, r := range reqs {
		if provider, ok := result.Provider(r); ok {
			resp.Mapping[req.Requirements[i].String()] = cat.ObjectName(provider)
		}
	}
	for _, r := range result.Unsatisfied() {
		resp.Unsatisfied = append(resp.Unsatisfied, cat.Describe(r))
	}
	logger.V(1).Info("resolved", "resources", len(resp.Resources), "unsatisfied", len(resp.Unsatisfied))

	out, err = resp.ToStruct()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Runnable serves a Server on a TCP address for as long as the manager runs.
type Runnable struct {
	Addr    string
	Server  *Server
	Options []grpc.ServerOption
}

var (
	_ manager.Runnable               = (*Runnable)(nil)
	_ manager.LeaderElectionRunnable = (*Runnable)(nil)
)

func (r *Runnable) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", r.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.Addr, err)
	}
	return Serve(ctx, lis, r.Server, r.Options...)
}

// NeedLeaderElection is false: dry runs are read-only and every replica can
// serve them.
func (r *Runnable) NeedLeaderElection() bool {
	return false
}

// Serve registers srv on a new grpc.Server and serves lis until ctx is done.
func Serve(ctx context.Context, lis net.Listener, srv ProvisionerServer, opts ...grpc.ServerOption) error {
	g := grpc.NewServer(opts...)
	RegisterProvisionerServer(g, srv)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			g.GracefulStop()
		case <-done:
		}
	}()

	if err := g.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}
