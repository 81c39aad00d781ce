// internal/detect/gateway.go
package detect

import (
	"context"
	"log/slog"

	"github.com/fleetsight/watchtower/internal/types"
)

// Gateway accepts notification and service-invocation requests for
// asynchronous delivery. Delivery failures and retries are the gateway's
// concern; the engine hands requests over exactly once and moves on.
type Gateway interface {
	Deliver(ctx context.Context, req types.NotificationRequest) error
	Invoke(ctx context.Context, req types.ServiceInvocationRequest) error
}

// LogGateway records requests to the structured log instead of delivering
// them. Default gateway for the CLI until a real delivery channel is wired.
type LogGateway struct {
	Logger *slog.Logger
}

// Deliver implements Gateway.
func (g *LogGateway) Deliver(ctx context.Context, req types.NotificationRequest) error {
	g.logger().InfoContext(ctx, "notification request",
		slog.String("channel", req.Channel),
		slog.String("role", req.Role),
		slog.String("message", req.RenderedMessage))
	return nil
}

// Invoke implements Gateway.
func (g *LogGateway) Invoke(ctx context.Context, req types.ServiceInvocationRequest) error {
	g.logger().InfoContext(ctx, "service invocation request",
		slog.String("service_ref", req.ServiceRef),
		slog.String("payload", req.RenderedPayload))
	return nil
}

func (g *LogGateway) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
