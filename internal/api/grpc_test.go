package api

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"roombook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func (e *apiEnv) grpcConn(t *testing.T) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	logger := zerolog.New(io.Discard)

	srv, err := newGRPCServer(e.cfg, e.svc, e.auth, lis, &logger)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method, apiKey string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", apiKey, "x-api-extra", extra)
	}

	out := new(structpb.Struct)
	err = conn.Invoke(ctx, method, req, out)
	return out, err
}

// structpb only carries float64 numbers.
func (e *apiEnv) reservationStruct(slotID int64, date string, attendees int) map[string]any {
	return map[string]any{
		"room_id":        float64(e.room.ID),
		"slot_id":        float64(slotID),
		"date":           date,
		"purpose":        "Seminar",
		"attendee_count": float64(attendees),
	}
}

func TestGRPC_ReservationLifecycle(t *testing.T) {
	env := newAPIEnv(t)
	conn := env.grpcConn(t)

	out, err := invoke(t, conn, methodCreateReservation, ownerKey, env.reservationStruct(env.slot.ID, "2025-06-02", 12))
	require.NoError(t, err)
	created := out.AsMap()
	assert.Equal(t, "2025-06-02", created["date"])
	id := created["id"].(float64)

	_, err = invoke(t, conn, methodCreateReservation, otherKey, env.reservationStruct(env.slot.ID, "2025-06-02", 5))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	out, err = invoke(t, conn, methodGetReservation, otherKey, map[string]any{"id": id})
	require.NoError(t, err)
	assert.Equal(t, "Seminar", out.AsMap()["purpose"])

	out, err = invoke(t, conn, methodUpdateReservation, ownerKey, map[string]any{"id": id, "attendee_count": float64(20)})
	require.NoError(t, err)
	assert.Equal(t, float64(20), out.AsMap()["attendee_count"])

	_, err = invoke(t, conn, methodUpdateReservation, ownerKey, map[string]any{"id": id, "attendee_count": float64(99)})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = invoke(t, conn, methodDeleteReservation, otherKey, map[string]any{"id": id})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	out, err = invoke(t, conn, methodDeleteReservation, ownerKey, map[string]any{"id": id})
	require.NoError(t, err)
	assert.Equal(t, true, out.AsMap()["deleted"])

	_, err = invoke(t, conn, methodGetReservation, ownerKey, map[string]any{"id": id})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_Errors(t *testing.T) {
	env := newAPIEnv(t)
	conn := env.grpcConn(t)

	_, err := invoke(t, conn, methodGetReservation, "", map[string]any{"id": float64(1)})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = invoke(t, conn, methodGetReservation, "bogus", map[string]any{"id": float64(1)})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = invoke(t, conn, methodCreateReservation, ownerKey, env.reservationStruct(env.slot.ID, "2025-05-26", 5))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = invoke(t, conn, methodCreateReservation, ownerKey, env.reservationStruct(env.slot.ID, "June 2nd", 5))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, methodDeleteReservation, ownerKey, map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_ValidateReservation(t *testing.T) {
	env := newAPIEnv(t)
	conn := env.grpcConn(t)

	out, err := invoke(t, conn, methodValidateReservation, ownerKey, env.reservationStruct(env.slot.ID, "2025-06-02", 31))
	require.NoError(t, err)
	assert.Equal(t, false, out.AsMap()["valid"])
	assert.Equal(t, "capacity_exceeded", out.AsMap()["code"])

	out, err = invoke(t, conn, methodValidateReservation, ownerKey, env.reservationStruct(env.slot2.ID, "2025-06-02", 30))
	require.NoError(t, err)
	assert.Equal(t, true, out.AsMap()["valid"])
}

func TestGRPC_RateLimit(t *testing.T) {
	env := newAPIEnv(t, func(c *config.APIConfig) {
		c.RateLimit.RPS = 0.001
		c.RateLimit.Burst = 1
	})
	conn := env.grpcConn(t)

	_, err := invoke(t, conn, methodGetReservation, ownerKey, map[string]any{"id": float64(1)})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = invoke(t, conn, methodGetReservation, ownerKey, map[string]any{"id": float64(1)})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}
