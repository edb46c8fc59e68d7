// Package grpcapi implements the polycalc.v1.Algebra gRPC service. Requests
// and responses are google.protobuf.Struct messages carrying the same fields
// as the REST API bodies.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/polycalc/pkg/expr"
	"github.com/lemonberrylabs/polycalc/pkg/graph"
	"github.com/lemonberrylabs/polycalc/pkg/ops"
	"github.com/lemonberrylabs/polycalc/pkg/poly"
	"github.com/lemonberrylabs/polycalc/pkg/solver"
	"github.com/lemonberrylabs/polycalc/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "polycalc.v1.Algebra"

// AlgebraServer is the server API for the Algebra service.
type AlgebraServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Solve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sample(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Algebra service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlgebraServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Parse", Handler: unaryHandler("Parse", AlgebraServer.Parse)},
		{MethodName: "Solve", Handler: unaryHandler("Solve", AlgebraServer.Solve)},
		{MethodName: "Evaluate", Handler: unaryHandler("Evaluate", AlgebraServer.Evaluate)},
		{MethodName: "Sample", Handler: unaryHandler("Sample", AlgebraServer.Sample)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "polycalc/v1/algebra.proto",
}

func unaryHandler(method string, call func(AlgebraServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AlgebraServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AlgebraServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Server implements the Algebra gRPC service.
type Server struct {
	set    ops.Set
	logger *zap.Logger
	grpc   *grpc.Server
}

// New creates a new gRPC server that evaluates expressions with set.
func New(set ops.Set, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{set: set, logger: logger}

	gs := grpc.NewServer(grpc.UnaryInterceptor(srv.logCall))
	gs.RegisterService(&ServiceDesc, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func (s *Server) logCall(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug("rpc",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("latency", time.Since(start)))
	return resp, err
}

// --- Algebra Service ---

func (s *Server) Parse(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	tree, err := expr.ParseTree(stringField(req, "expression"))
	if err != nil {
		return nil, algebraStatus(err)
	}

	coeffs := p.Coefficients()
	list := make([]any, len(coeffs))
	for i, c := range coeffs {
		list[i] = c
	}
	return newStruct(map[string]any{
		"polynomial":   p.String(),
		"degree":       p.Degree(),
		"coefficients": list,
		"tree":         tree.String(),
	})
}

func (s *Server) Solve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	sol, err := solver.Solve(p)
	if err != nil {
		return nil, algebraStatus(err)
	}

	fields := map[string]any{
		"solution": sol.String(),
		"kind":     string(sol.Kind),
	}
	if sol.Kind == solver.ComplexPair {
		fields["real"] = sol.Real
		fields["imag"] = sol.Imag
	} else {
		roots := make([]any, len(sol.Roots))
		for i, r := range sol.Roots {
			roots[i] = r
		}
		fields["roots"] = roots
	}
	return newStruct(fields)
}

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	x, ok := numberField(req, "x")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "x is required")
	}
	p, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	return newStruct(map[string]any{
		"polynomial": p.String(),
		"x":          x,
		"value":      p.Evaluate(x),
	})
}

func (s *Server) Sample(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.parse(req)
	if err != nil {
		return nil, err
	}

	xMin, xMax, n := graph.DefaultXMin, graph.DefaultXMax, graph.DefaultSamples
	if v, ok := numberField(req, "xMin"); ok {
		xMin = v
	}
	if v, ok := numberField(req, "xMax"); ok {
		xMax = v
	}
	if v, ok := numberField(req, "samples"); ok {
		n = int(v)
	}

	points, err := graph.Sample(p, xMin, xMax, n)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	list := make([]any, len(points))
	for i, pt := range points {
		list[i] = map[string]any{"x": pt.X, "y": pt.Y}
	}
	return newStruct(map[string]any{
		"polynomial": p.String(),
		"points":     list,
	})
}

// --- Helpers ---

func (s *Server) parse(req *structpb.Struct) (poly.Polynomial, error) {
	e := stringField(req, "expression")
	if len(e) > expr.MaxExpressionLength {
		return poly.Polynomial{}, status.Errorf(codes.InvalidArgument,
			"expression exceeds maximum length of %d characters", expr.MaxExpressionLength)
	}
	p, err := expr.ParseWith(e, s.set)
	if err != nil {
		return poly.Polynomial{}, algebraStatus(err)
	}
	return p, nil
}

// algebraStatus maps an algebra failure to a gRPC status. Unsupported
// equations are FailedPrecondition; lex, parse and arithmetic errors are
// InvalidArgument.
func algebraStatus(err error) error {
	var ae *types.AlgebraError
	if !errors.As(err, &ae) {
		return status.Error(codes.Internal, err.Error())
	}
	if ae.Kind == types.KindUnsupported {
		return status.Error(codes.FailedPrecondition, ae.Error())
	}
	return status.Error(codes.InvalidArgument, ae.Error())
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func numberField(s *structpb.Struct, key string) (float64, bool) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return n.NumberValue, true
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return st, nil
}
