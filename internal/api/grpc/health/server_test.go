package health

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

// TestServer_Statuses exercises the health service end-to-end over an in-memory listener.
func TestServer_Statuses(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	lis := bufconn.Listen(1 << 20)
	s := NewServer()

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)

		return resp.GetStatus()
	}

	// Fresh session: hub assumed live, no camera yet.
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(""))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(CameraService))

	s.SetHubLive(false)
	s.SetCameraLive(true)

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(""))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(CameraService))

	require.NoError(t, conn.Close())

	cancel()
	require.NoError(t, <-done)
}
