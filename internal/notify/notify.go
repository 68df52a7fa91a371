// Package notify delivers account emails. Delivery is a collaborator boundary:
// callers hand over a message and move on.
package notify

import "context"

// Sender delivers one-time password emails.
type Sender interface {
	SendOTP(ctx context.Context, to, name, code string) error
}

// Noop discards every message. Used in tests and when SMTP is not configured.
type Noop struct{}

func (Noop) SendOTP(context.Context, string, string, string) error { return nil }
