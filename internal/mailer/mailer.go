// internal/mailer/mailer.go

// Package mailer is the engine's outbound email transport. The core treats
// any non-success response uniformly as a transport failure regardless of
// cause, so the interface stays a single call.
package mailer

import "context"

// Mailer sends one email and returns the transport-assigned message id.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}
