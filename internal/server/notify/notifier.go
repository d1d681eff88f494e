package notify

import "context"

// Mailer sends the account emails.
type Mailer interface {
	SendConfirmEmail(ctx context.Context, email, receipt, origin string) error
	SendResetEmail(ctx context.Context, email, receipt, origin string) error
}

// Notifier combines a Mailer and a Publisher.
type Notifier struct {
	Mailer
	Publisher
}

func NewNotifier(m Mailer, p Publisher) *Notifier {
	return &Notifier{Mailer: m, Publisher: p}
}
