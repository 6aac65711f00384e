// Package mailer delivers subject reminders to the owner and tenant of a contract by email.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"lease_notifier/internal/domain"
	"lease_notifier/internal/domain/delivery"
	"lease_notifier/internal/domain/notification"
	"lease_notifier/internal/domain/party"

	"github.com/sirupsen/logrus"
)

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer implements delivery.SubjectChannel over SMTP.
type Mailer struct {
	cfg     Config
	parties party.Repository
	send    SendFunc
	logger  *logrus.Entry
}

func New(cfg Config, parties party.Repository, logger *logrus.Entry) *Mailer {
	return &Mailer{cfg: cfg, parties: parties, send: smtp.SendMail, logger: logger}
}

// WithSendFunc replaces the SMTP transport.
func (m *Mailer) WithSendFunc(fn SendFunc) *Mailer {
	m.send = fn
	return m
}

var (
	subjectTmpl = template.Must(template.New("subject").Parse(
		`{{if .Annuity}}Annuity {{.Year}} due on {{.Due}}{{else}}Your lease contract ends on {{.Due}}{{end}}`))
	bodyTmpl = template.Must(template.New("body").Parse(`Dear {{.Name}},

{{if .Annuity -}}
the {{.Year}} annuity of lease contract #{{.ContractID}} falls due on {{.Due}}, in {{.Horizon}} days.
{{- else -}}
lease contract #{{.ContractID}} reaches its natural end on {{.Due}}, in {{.Horizon}} days.
{{- end}}

Please get in touch with the agency if anything needs to be arranged.
`))
)

type messageData struct {
	Name       string
	ContractID int64
	Annuity    bool
	Year       int32
	Due        string
	Horizon    int
}

// SendSubjectReminder emails the owner and tenant. It succeeds when at least one of them
// accepted the message.
func (m *Mailer) SendSubjectReminder(ctx context.Context, r delivery.Reminder) bool {
	log := m.logger.WithFields(logrus.Fields{
		"contract_id": r.Contract.ID,
		"kind":        r.Kind,
	})

	delivered := 0
	for _, partyID := range recipients(r) {
		p, err := m.parties.GetByID(ctx, partyID)
		if err != nil {
			if domain.IsNotFound(err) {
				log.WithField("party_id", partyID).Warn("Party not found, skipping")
			} else {
				log.WithError(err).WithField("party_id", partyID).Error("Failed to load party")
			}
			continue
		}
		if !p.Email.Valid || strings.TrimSpace(p.Email.String) == "" {
			log.WithField("party_id", partyID).Debug("Party has no email")
			continue
		}
		msg, err := m.compose(p, r)
		if err != nil {
			log.WithError(err).Error("Failed to render reminder email")
			return false
		}
		if err := m.deliver(ctx, p.Email.String, msg); err != nil {
			log.WithError(err).WithField("party_id", partyID).Error("Failed to send reminder email")
			continue
		}
		delivered++
	}
	return delivered > 0
}

func recipients(r delivery.Reminder) []int64 {
	if r.Contract.OwnerID == r.Contract.TenantID {
		return []int64{r.Contract.OwnerID}
	}
	return []int64{r.Contract.OwnerID, r.Contract.TenantID}
}

func (m *Mailer) compose(p *party.Party, r delivery.Reminder) ([]byte, error) {
	data := messageData{
		Name:       p.FullName,
		ContractID: r.Contract.ID,
		Annuity:    r.Kind == notification.KindAnnuityExpiry,
		Year:       r.Year.Int32,
		Due:        r.DueDate.Format("2006-01-02"),
		Horizon:    r.HorizonDays,
	}
	var subject, body bytes.Buffer
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return nil, err
	}
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", p.Email.String)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject.String())
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))
	return msg.Bytes(), nil
}

// deliver returns early when ctx is done; smtp.SendMail has no context support.
func (m *Mailer) deliver(ctx context.Context, to string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.cfg.From, []string{to}, msg)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
