// Package notify renders verification messages and hands them to the
// message broker for delivery by the mailer.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cjnewshub/apiserver/types"
)

// Kind identifies why a message was produced.
type Kind string

const (
	KindRecovery      Kind = "password_recovery"
	KindProfileUpdate Kind = "profile_update"
)

// Render substitutes every occurrence of {name}, {code} and {companyName}
// in template.
func Render(template, name, code, companyName string) string {
	return strings.NewReplacer(
		"{name}", name,
		"{code}", code,
		"{companyName}", companyName,
	).Replace(template)
}

// Message is the payload published for the mailer.
type Message struct {
	Kind      Kind      `json:"kind"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Compose builds a verification message for recipient using settings.
func Compose(kind Kind, settings types.EmailSettings, to, name, code string) Message {
	return Message{
		Kind:      kind,
		From:      settings.SenderEmail,
		To:        to,
		Subject:   fmt.Sprintf("%s verification code", settings.CompanyName),
		Body:      Render(settings.EmailTemplate, name, code, settings.CompanyName),
		CreatedAt: time.Now().UTC(),
	}
}

// Broker is the subset of the message queue used for delivery.
type Broker interface {
	PublishJSON(ctx context.Context, channel string, v any, attrs map[string]string) (string, error)
}

// Publisher sends messages to a broker channel.
type Publisher struct {
	broker  Broker
	channel string
}

// NewPublisher returns a Publisher writing to channel.
func NewPublisher(broker Broker, channel string) *Publisher {
	return &Publisher{broker: broker, channel: channel}
}

// Send publishes msg and returns the broker message id.
func (p *Publisher) Send(ctx context.Context, msg Message) (string, error) {
	id, err := p.broker.PublishJSON(ctx, p.channel, msg, map[string]string{"kind": string(msg.Kind)})
	if err != nil {
		return "", fmt.Errorf("publish notification: %w", err)
	}
	return id, nil
}
