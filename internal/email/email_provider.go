package email

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wneessen/go-mail"

	"github.com/invory/notification-service/internal/usecase"
)

func NewEmailProvider(
	smtpHost, smtpUser, smtpPassword, smtpPort string) (*EmailProvider, error) {

	if smtpHost == "" || smtpUser == "" || smtpPassword == "" || smtpPort == "" {
		return nil, fmt.Errorf("email: SMTP host, user, password and port must be provided")
	}

	smtpPortInt, err := strconv.Atoi(smtpPort)
	if err != nil {
		return nil, fmt.Errorf("email: invalid SMTP port: %w", err)
	}

	client, err := mail.NewClient(
		smtpHost,
		mail.WithPort(smtpPortInt),
		mail.WithUsername(smtpUser),
		mail.WithPassword(smtpPassword),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
	)
	if err != nil {
		return nil, fmt.Errorf("email: create SMTP client: %w", err)
	}

	provider := &EmailProvider{
		c:      make(chan *mail.Msg, 16),
		client: client,
		logger: slog.Default().With("component", "email"),
	}

	// Delivery happens off the caller's path.
	go provider.sendEmailWorker()

	return provider, nil
}

type EmailProvider struct {
	c      chan *mail.Msg
	client *mail.Client
	logger *slog.Logger
}

func (e *EmailProvider) SendEmail(_ context.Context, email usecase.Email) error {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return fmt.Errorf("email: from address: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return fmt.Errorf("email: to addresses: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)

	e.c <- msg

	return nil
}

func (e *EmailProvider) sendEmailWorker() {
	for msg := range e.c {
		if err := e.client.DialAndSend(msg); err != nil {
			e.logger.Error("send email", slog.String("err", err.Error()))
		}
	}
}
