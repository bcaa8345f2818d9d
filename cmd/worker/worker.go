package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"

	"github.com/learnmarket/backend/internal/identity"
	"github.com/learnmarket/backend/internal/models"
	"github.com/learnmarket/backend/internal/notify"
)

// ContactResolver resolves the e-mail address of a user
type ContactResolver interface {
	// GetContact retrieves the contact details of a user.
	//
	// "userID" is the ID of the user to reach.
	//
	// If the user cannot be resolved, the error will be returned together with "nil" value.
	GetContact(ctx context.Context, userID int) (*identity.Contact, error)
}

// CourseReader reads the course a notification is about
type CourseReader interface {
	// GetByID retrieves a course by its ID.
	GetByID(ctx context.Context, id int) (*models.Course, error)
}

// Sender delivers an e-mail
type Sender interface {
	Send(to, subject, body string) error
}

// smtpSender sends e-mails through an SMTP server with gopkg.in/mail.v2
type smtpSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender creates a sender for the given SMTP server
func NewSMTPSender(host string, port int, username, password, from string) *smtpSender {
	return &smtpSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send sends an HTML e-mail
func (s *smtpSender) Send(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := mail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var (
	receiptTemplate = template.Must(template.New("receipt").Parse(
		`<p>Hi {{.Name}},</p><p>Your payment of {{.Amount}} {{.Currency}} for <b>{{.Course}}</b> is complete. Happy learning!</p>`))
	refundApprovedTemplate = template.Must(template.New("refundApproved").Parse(
		`<p>Hi {{.Name}},</p><p>Your refund of {{.Amount}} {{.Currency}} for <b>{{.Course}}</b> has been approved. Your access to the course has ended.</p>`))
	refundRejectedTemplate = template.Must(template.New("refundRejected").Parse(
		`<p>Hi {{.Name}},</p><p>Your refund request for <b>{{.Course}}</b> was not approved.</p>{{if .Reason}}<p>Note: {{.Reason}}</p>{{end}}`))
	payoutTemplate = template.Must(template.New("payout").Parse(
		`<p>Hi {{.Name}},</p><p>A payout of {{.Amount}} covering {{.Count}} sale(s) has been processed.</p>`))
)

// Worker delivers notification e-mails
type Worker struct {
	logger   *zap.Logger
	contacts ContactResolver
	courses  CourseReader
	sender   Sender
}

// NewWorker creates a new worker instance
func NewWorker(logger *zap.Logger, contacts ContactResolver, courses CourseReader, sender Sender) *Worker {
	return &Worker{
		logger:   logger,
		contacts: contacts,
		courses:  courses,
		sender:   sender,
	}
}

// Register binds the worker's handlers to the asynq mux
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(notify.TypePaymentCompleted, w.HandlePaymentCompleted)
	mux.HandleFunc(notify.TypeRefundDecided, w.HandleRefundDecided)
	mux.HandleFunc(notify.TypePayoutProcessed, w.HandlePayoutProcessed)
}

// HandlePaymentCompleted sends the payment receipt to the learner
func (w *Worker) HandlePaymentCompleted(ctx context.Context, t *asynq.Task) error {
	var payload notify.PaymentCompletedPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}

	contact, err := w.contacts.GetContact(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve learner: %w", err)
	}

	body, err := render(receiptTemplate, map[string]any{
		"Name":     contact.Name,
		"Amount":   payload.Amount,
		"Currency": payload.Currency,
		"Course":   w.courseTitle(ctx, payload.CourseID),
	})
	if err != nil {
		return err
	}

	if err := w.sender.Send(contact.Email, "Your payment receipt", body); err != nil {
		return err
	}

	w.logger.Info("Payment receipt sent", zap.Int("payment_id", payload.PaymentID))
	return nil
}

// HandleRefundDecided tells the learner how a refund request was decided
func (w *Worker) HandleRefundDecided(ctx context.Context, t *asynq.Task) error {
	var payload notify.RefundDecidedPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}

	contact, err := w.contacts.GetContact(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve learner: %w", err)
	}

	tmpl, subject := refundRejectedTemplate, "Your refund request was declined"
	if payload.Approved {
		tmpl, subject = refundApprovedTemplate, "Your refund was approved"
	}

	body, err := render(tmpl, map[string]any{
		"Name":     contact.Name,
		"Amount":   payload.Amount,
		"Currency": payload.Currency,
		"Course":   w.courseTitle(ctx, payload.CourseID),
		"Reason":   payload.Reason,
	})
	if err != nil {
		return err
	}

	if err := w.sender.Send(contact.Email, subject, body); err != nil {
		return err
	}

	w.logger.Info("Refund decision sent", zap.Int("payment_id", payload.PaymentID), zap.Bool("approved", payload.Approved))
	return nil
}

// HandlePayoutProcessed sends the payout statement to the creator
func (w *Worker) HandlePayoutProcessed(ctx context.Context, t *asynq.Task) error {
	var payload notify.PayoutProcessedPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}

	contact, err := w.contacts.GetContact(ctx, payload.CreatorID)
	if err != nil {
		return fmt.Errorf("failed to resolve creator: %w", err)
	}

	body, err := render(payoutTemplate, map[string]any{
		"Name":   contact.Name,
		"Amount": payload.Amount,
		"Count":  payload.PaymentCount,
	})
	if err != nil {
		return err
	}

	if err := w.sender.Send(contact.Email, "Your payout has been processed", body); err != nil {
		return err
	}

	w.logger.Info("Payout statement sent", zap.Int("payout_id", payload.PayoutID))
	return nil
}

// courseTitle returns the title of a course, or a generic label when it cannot be read
func (w *Worker) courseTitle(ctx context.Context, courseID int) string {
	course, err := w.courses.GetByID(ctx, courseID)
	if err != nil {
		w.logger.Warn("Failed to read course for notification", zap.Int("course_id", courseID), zap.Error(err))
		return "your course"
	}
	return course.Title
}

// decodePayload unmarshals a task payload; malformed payloads are never retried
func decodePayload(t *asynq.Task, v any) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
