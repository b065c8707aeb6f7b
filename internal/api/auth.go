package api

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthInterceptor authenticates gRPC calls and applies the per-client limits.
type AuthInterceptor struct {
	auth    *Authenticator
	limiter *rateLimiter
	quota   *writeQuota
}

func NewAuthInterceptor(auth *Authenticator, svc Services) *AuthInterceptor {
	return &AuthInterceptor{
		auth:    auth,
		limiter: newRateLimiter(auth.cfg.RateLimit),
		quota:   newWriteQuota(svc.Quota, auth.cfg.RateLimit),
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		get := func(name string) string { return first(md.Get(name)) }

		id, err := a.auth.Authenticate(ctx, get)
		if err != nil {
			return nil, grpcError(err)
		}

		key := a.auth.ClientKey(get, remoteAddr(ctx))
		if !a.limiter.Allow(key) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		if isWriteMethod(info.FullMethod) && !a.quota.Allow(ctx, key) {
			return nil, status.Error(codes.ResourceExhausted, "write quota exceeded")
		}

		return handler(withIdentity(ctx, id), req)
	}
}

func isWriteMethod(fullMethod string) bool {
	switch fullMethod {
	case methodCreateReservation, methodUpdateReservation, methodDeleteReservation:
		return true
	}
	return false
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
