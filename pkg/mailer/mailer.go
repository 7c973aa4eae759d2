package mailer

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outgoing email.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages to an external email provider. Delivery is
// best-effort; callers must never treat a send failure as fatal to the
// state change that produced the message.
type Mailer interface {
	Send(msg Message) error
}
