package mailer

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// SendgridMailer sends mail through the SendGrid v3 API.
type SendgridMailer struct {
	key  string
	from *sgmail.Email
}

var _ Mailer = (*SendgridMailer)(nil)

// NewSendgridMailer constructs a SendGrid-backed mailer.
func NewSendgridMailer(apiKey, fromName, fromAddress string) *SendgridMailer {
	return &SendgridMailer{
		key:  apiKey,
		from: sgmail.NewEmail(fromName, fromAddress),
	}
}

// Send delivers a single message with optional attachments.
func (m *SendgridMailer) Send(msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.Subject = msg.Subject
	mail.AddContent(sgmail.NewContent("text/plain", msg.Body))

	p := sgmail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}
	mail.AddPersonalizations(p)

	for _, att := range msg.Attachments {
		attachment := sgmail.NewAttachment()
		attachment.SetFilename(att.Filename)
		attachment.SetType(att.ContentType)
		attachment.SetContent(base64.StdEncoding.EncodeToString(att.Data))
		attachment.SetDisposition("attachment")
		mail.AddAttachment(attachment)
	}

	req := sendgrid.GetRequest(m.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(mail)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
