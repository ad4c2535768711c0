package interceptor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"bluecollar-backend/internal/config"
	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/security"
	"bluecollar-backend/internal/service"

	"github.com/google/uuid"
)

type AuthInterceptor struct {
	auth service.AuthService
}

func NewAuthInterceptor(auth service.AuthService) *AuthInterceptor {
	return &AuthInterceptor{auth: auth}
}

// Unary returns a server interceptor function to authenticate and authorize unary RPCs
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx = withRequestID(ctx)
		start := time.Now()

		newCtx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			logger.WarnContext(ctx, "RPC rejected", "method", info.FullMethod, "error", err)
			return nil, err
		}

		resp, err := handler(newCtx, req)
		logger.InfoContext(ctx, "rpc", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
		return resp, err
	}
}

// Stream applies the same checks to streaming RPCs.
func (i *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := withRequestID(ss.Context())
		newCtx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			logger.WarnContext(ctx, "RPC rejected", "method", info.FullMethod, "error", err)
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: newCtx})
	}
}

func (i *AuthInterceptor) authorize(ctx context.Context, method string) (context.Context, error) {
	policy := config.GetRoutePolicy(method)

	// Public endpoint - skip auth
	if policy.Public {
		return ctx, nil
	}

	token, err := extractToken(ctx)
	if err != nil {
		return nil, err
	}

	principal, err := i.auth.ResolvePrincipal(ctx, token)
	if err != nil {
		if errors.Is(err, security.ErrInvalidToken) || errors.Is(err, security.ErrExpiredToken) {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		return nil, status.Errorf(codes.Internal, "resolve caller: %v", err)
	}
	if !policy.Allows(string(principal.Role)) {
		return nil, status.Errorf(codes.PermissionDenied, "role %s may not call %s", principal.Role, method)
	}

	// Copy so the client's own user-id header cannot survive.
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	md.Set("user-id", strconv.Itoa(int(principal.UserID)))
	md.Set("user-role", string(principal.Role))
	return metadata.NewIncomingContext(ctx, md), nil
}

func extractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "metadata is not provided")
	}

	authHeader := md["authorization"]
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}

	return token, nil
}

func withRequestID(ctx context.Context) context.Context {
	id := uuid.NewString()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
			id = v[0]
		}
	}
	return logger.WithRequestID(ctx, id)
}

// PrincipalFromContext reads the caller placed in the metadata by the interceptor.
func PrincipalFromContext(ctx context.Context) (*security.Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userIDs := md.Get("user-id")
	if len(userIDs) == 0 {
		return nil, status.Errorf(codes.Unauthenticated, "user_id is not provided in metadata")
	}
	userID, err := strconv.ParseInt(userIDs[0], 10, 32)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid user_id format: %v", err)
	}

	p := &security.Principal{UserID: int32(userID)}
	if roles := md.Get("user-role"); len(roles) > 0 {
		p.Role = domain.Role(roles[0])
	}
	return p, nil
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
