package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

type ResendNotifier struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

func NewResendNotifier(apiKey, from string, log *zap.Logger) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    log,
	}
}

func (n *ResendNotifier) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	n.log.Info("Email sent", zap.String("id", sent.Id), zap.String("to", msg.To))
	return nil
}
