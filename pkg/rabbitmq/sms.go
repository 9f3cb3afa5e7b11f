package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is the publish side of Client.
type Publisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// SMSMessage is the payload queued on sms_queue for the SMS sender.
type SMSMessage struct {
	Phone    string `json:"phone"`
	Template string `json:"template"`
	Token    string `json:"token"`
}

// SMS templates.
const (
	TemplateVerificationCode  = "verification_code"
	TemplateTemporaryPassword = "temporary_password"
)

// SMSNotifier queues text messages for delivery by a separate SMS worker.
type SMSNotifier struct {
	publisher Publisher
}

// NewSMSNotifier creates a new SMSNotifier.
func NewSMSNotifier(publisher Publisher) *SMSNotifier {
	return &SMSNotifier{publisher: publisher}
}

// SendCode queues a verification code.
func (n *SMSNotifier) SendCode(ctx context.Context, phone, code string) error {
	return n.send(ctx, SMSMessage{Phone: phone, Template: TemplateVerificationCode, Token: code})
}

// SendPassword queues a temporary password.
func (n *SMSNotifier) SendPassword(ctx context.Context, phone, password string) error {
	return n.send(ctx, SMSMessage{Phone: phone, Template: TemplateTemporaryPassword, Token: password})
}

func (n *SMSNotifier) send(ctx context.Context, msg SMSMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal sms: %w", err)
	}
	return n.publisher.Publish("", SMSQueue, body)
}
