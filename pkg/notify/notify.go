// Package notify delivers account-lifecycle tokens to their owners.
// Delivery transport is behind an interface; the default implementation
// just logs, which is enough for development and for deployments that
// read tokens off the server log.
package notify

import (
	"log"
)

// Notifier delivers verification and recovery tokens. An SMTP or
// push-based implementation would satisfy the same interface.
type Notifier interface {
	VerificationToken(email, token string) error
	RecoveryToken(email, token string) error
}

// LogNotifier writes tokens to the standard logger.
type LogNotifier struct {
	Logger *log.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger means the default
// standard logger.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) VerificationToken(email, token string) error {
	n.Logger.Printf("verification token for %s: %s", email, token)
	return nil
}

func (n *LogNotifier) RecoveryToken(email, token string) error {
	n.Logger.Printf("recovery token for %s: %s", email, token)
	return nil
}
