package gameserver

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cory-johannsen/enforcer/internal/game/command"
	"github.com/cory-johannsen/enforcer/internal/law"
)

const (
	lawAdminServiceName    = "enforcer.admin.v1.LawAdmin"
	lawAdminSnapshotMethod = "/" + lawAdminServiceName + "/Snapshot"
	lawAdminExecuteMethod  = "/" + lawAdminServiceName + "/Execute"
)

// LawAdminServer is the server API of the LawAdmin service.
type LawAdminServer interface {
	Snapshot(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Execute(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// LawAdminServiceDesc describes the LawAdmin service. Both methods use
// protobuf well-known types, so no generated code is involved.
var LawAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: lawAdminServiceName,
	HandlerType: (*LawAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Snapshot", Handler: lawAdminSnapshotHandler},
		{MethodName: "Execute", Handler: lawAdminExecuteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "enforcer/admin/v1/law_admin.proto",
}

func lawAdminSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LawAdminServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: lawAdminSnapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LawAdminServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func lawAdminExecuteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LawAdminServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: lawAdminExecuteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LawAdminServer).Execute(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterLawAdminServer registers srv on s.
func RegisterLawAdminServer(s grpc.ServiceRegistrar, srv LawAdminServer) {
	s.RegisterService(&LawAdminServiceDesc, srv)
}

// LawAdminClient is the client API of the LawAdmin service.
type LawAdminClient struct {
	cc grpc.ClientConnInterface
}

// NewLawAdminClient wraps cc.
func NewLawAdminClient(cc grpc.ClientConnInterface) *LawAdminClient {
	return &LawAdminClient{cc: cc}
}

// Snapshot fetches the admin snapshot.
func (c *LawAdminClient) Snapshot(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, lawAdminSnapshotMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Execute runs one `law ...` command line and returns its reply.
func (c *LawAdminClient) Execute(ctx context.Context, line string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, lawAdminExecuteMethod, wrapperspb.String(line), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// AdminService implements LawAdminServer by funnelling every call onto the
// tick loop.
type AdminService struct {
	loop     *TickLoop
	law      *LawSystemHandler
	commands *LawCommandHandler
	logger   *zap.Logger
}

// NewAdminService creates an AdminService.
//
// Precondition: all arguments must be non-nil.
func NewAdminService(loop *TickLoop, lawSys *LawSystemHandler, commands *LawCommandHandler, logger *zap.Logger) *AdminService {
	return &AdminService{
		loop:     loop,
		law:      lawSys,
		commands: commands,
		logger:   logger.Named("admin"),
	}
}

// Snapshot implements LawAdminServer.
func (s *AdminService) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	var data AdminData
	if err := s.loop.Do(ctx, func() { data = s.law.BuildAdminData() }); err != nil {
		return nil, loopStatus(err)
	}
	out, err := data.Struct()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "snapshot: %v", err)
	}
	return out, nil
}

// Execute implements LawAdminServer.
func (s *AdminService) Execute(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "command line is required")
	}
	var (
		reply  string
		cmdErr error
	)
	if err := s.loop.Do(ctx, func() {
		reply, cmdErr = s.commands.Execute(ctx, uuid.Nil, req.GetValue())
	}); err != nil {
		return nil, loopStatus(err)
	}
	if cmdErr != nil {
		s.logger.Info("admin command rejected", zap.String("line", req.GetValue()), zap.Error(cmdErr))
		return nil, commandStatus(cmdErr)
	}
	return wrapperspb.String(reply), nil
}

func loopStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

func commandStatus(err error) error {
	switch {
	case errors.Is(err, command.ErrUsage),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, law.ErrUnknownPreset):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrPlayerNotFound), errors.Is(err, ErrNPCNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
}
