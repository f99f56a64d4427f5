package notifier

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailNotifier sends plain-text mail over SMTP with STARTTLS.
type EmailNotifier struct {
	Host      string
	Port      int
	Sender    string
	Password  string
	Recipient string

	// send is swapped in tests.
	send func(m *gomail.Message) error
}

func NewEmailNotifier(host string, port int, sender, password, recipient string) *EmailNotifier {
	e := &EmailNotifier{Host: host, Port: port, Sender: sender, Password: password, Recipient: recipient}
	e.send = func(m *gomail.Message) error {
		return gomail.NewDialer(e.Host, e.Port, e.Sender, e.Password).DialAndSend(m)
	}
	return e
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.Sender)
	m.SetHeader("To", e.Recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := e.send(m); err != nil {
		return fmt.Errorf("smtp %s:%d: %w", e.Host, e.Port, err)
	}
	return nil
}
