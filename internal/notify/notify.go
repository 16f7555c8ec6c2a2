// Package notify sends donor-facing notifications about decision outcomes.
// Delivery is best-effort: a failed email never fails the transition that
// triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Decision is the notification payload for an admin decision.
type Decision struct {
	DonorName  string
	DonorEmail string
	Approved   bool
	Reason     string
}

// Notifier delivers decision notifications.
type Notifier interface {
	DecisionMade(ctx context.Context, d Decision)
}

// ResendNotifier sends email through the Resend API.
type ResendNotifier struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

func NewResendNotifier(apiKey, from string, logger *slog.Logger) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger,
	}
}

func (n *ResendNotifier) DecisionMade(ctx context.Context, d Decision) {
	if d.DonorEmail == "" {
		return
	}

	subject := "Your blood donation was approved"
	body := fmt.Sprintf("Hi %s,\n\nYour donation has been approved and added to the blood inventory. Thank you for donating.\n", d.DonorName)
	if !d.Approved {
		subject = "Update on your blood donation request"
		body = fmt.Sprintf("Hi %s,\n\nYour donation request was not approved.\n\nReason: %s\n", d.DonorName, d.Reason)
	}

	_, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{d.DonorEmail},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		n.logger.WarnContext(ctx, "decision email failed",
			"error", err,
			"approved", d.Approved,
		)
	}
}

// NoopNotifier is used when no email provider is configured.
type NoopNotifier struct{}

func (NoopNotifier) DecisionMade(context.Context, Decision) {}
