// Package email renders notification emails and delivers them through an
// external email API.
package email

import "context"

// Message is one email ready to hand to a Transport.
type Message struct {
	To      string
	Subject string
	HTML    string
	ReplyTo string
}

// Result is the provider's acknowledgement of an accepted message.
type Result struct {
	MessageID string
}

// Transport abstracts delivery to an external email service.
// Mocking this interface in tests gives full control over provider behaviour
// without making real HTTP calls.
type Transport interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}
