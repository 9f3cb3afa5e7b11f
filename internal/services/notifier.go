package services

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers short messages to a phone. Delivery is fire-and-forget:
// callers log failures and carry on.
type Notifier interface {
	SendCode(ctx context.Context, phone, code string) error
	SendPassword(ctx context.Context, phone, password string) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// LogNotifier writes notifications to the log. It is used when no broker is
// configured.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

// SendCode logs the verification code.
func (n *LogNotifier) SendCode(_ context.Context, phone, code string) error {
	n.lg.Info("Verification code", zap.String("phone", phone), zap.String("code", code))
	return nil
}

// SendPassword logs that a temporary password was issued, without the password.
func (n *LogNotifier) SendPassword(_ context.Context, phone, _ string) error {
	n.lg.Info("Temporary password issued", zap.String("phone", phone))
	return nil
}

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	lg *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(lg *zap.Logger) *LogPublisher {
	return &LogPublisher{lg: lg}
}

// Publish logs the event.
func (p *LogPublisher) Publish(exchange, routingKey string, body []byte) error {
	p.lg.Info("Event", zap.String("exchange", exchange), zap.String("routing_key", routingKey), zap.ByteString("body", body))
	return nil
}
