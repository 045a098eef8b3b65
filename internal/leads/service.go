package leads

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/logger"
	"github.com/studyassist/studyassist-backend/pkg/mailer"
)

// LeadInput is the public contact-form payload. Everything beyond name and
// contact is optional color for the staff channel.
type LeadInput struct {
	Name     string `json:"name" validate:"required"`
	Contact  string `json:"contact" validate:"required"`
	Subject  string `json:"subject,omitempty"`
	Message  string `json:"message,omitempty"`
	WorkType string `json:"work_type,omitempty"`
	Deadline string `json:"deadline,omitempty"`
	Price    string `json:"price,omitempty"`
}

type QuoteInput struct {
	WorkType     enums.WorkType `json:"work_type"`
	Subject      enums.Subject  `json:"subject"`
	DeadlineDays int            `json:"deadline_days"`
}

type telegramSender interface {
	Send(ctx context.Context, text string) error
}

type emailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type ServiceParams struct {
	Telegram telegramSender
	Email    emailSender // nil disables the email side channel
	EmailTo  string
	Logger   *logger.Logger
}

type Service struct {
	telegram telegramSender
	email    emailSender
	emailTo  string
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Telegram == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "telegram notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		telegram: params.Telegram,
		email:    params.Email,
		emailTo:  strings.TrimSpace(params.EmailTo),
		logg:     params.Logger,
	}, nil
}

// Submit relays a contact-form lead to the staff Telegram chat and, when the
// mailer is configured, to the admin inbox. Telegram delivery is mandatory;
// email is best effort.
func (s *Service) Submit(ctx context.Context, input LeadInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Contact = strings.TrimSpace(input.Contact)
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Contact == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "contact is required")
	}

	if err := s.telegram.Send(ctx, formatTelegram(input)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "relay lead to telegram")
	}

	if s.email == nil || s.emailTo == "" {
		return nil
	}
	msg := mailer.Message{
		To:      []string{s.emailTo},
		Subject: "New lead: " + input.Name,
		HTML:    formatEmail(input),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "lead_name", input.Name), "lead email relay failed: "+err.Error())
	}
	return nil
}

// Quote prices a prospective order without creating anything.
func (s *Service) Quote(ctx context.Context, input QuoteInput) (*orders.Quote, error) {
	return orders.CalculatePrice(input.WorkType, input.Subject, input.DeadlineDays)
}

func formatTelegram(input LeadInput) string {
	var b strings.Builder
	b.WriteString("*New lead*\n")
	writeLine(&b, "Name", input.Name)
	writeLine(&b, "Contact", input.Contact)
	writeLine(&b, "Subject", input.Subject)
	writeLine(&b, "Work type", input.WorkType)
	writeLine(&b, "Deadline", input.Deadline)
	writeLine(&b, "Price", input.Price)
	writeLine(&b, "Message", input.Message)
	return strings.TrimRight(b.String(), "\n")
}

func writeLine(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, bot.EscapeMarkdown(value))
}

func formatEmail(input LeadInput) string {
	var b strings.Builder
	b.WriteString("<h2>New lead</h2><ul>")
	for _, row := range []struct{ label, value string }{
		{"Name", input.Name},
		{"Contact", input.Contact},
		{"Subject", input.Subject},
		{"Work type", input.WorkType},
		{"Deadline", input.Deadline},
		{"Price", input.Price},
		{"Message", input.Message},
	} {
		if strings.TrimSpace(row.value) == "" {
			continue
		}
		fmt.Fprintf(&b, "<li><b>%s:</b> %s</li>", row.label, html.EscapeString(row.value))
	}
	b.WriteString("</ul>")
	return b.String()
}
