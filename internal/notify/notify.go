/*
Package notify delivers packaged e-books to a reading-device mailbox over
SMTP.
*/
package notify

import (
	"fmt"
	"io"
	"time"

	"github.com/phuslu/log"
	gomail "gopkg.in/mail.v2"
)

const epubMIMEType = "application/epub+zip"

// EmailConfig holds SMTP configuration for sending e-books.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmail    string
	Enabled    bool
}

// Sender submits e-book attachments via SMTP. Submission acceptance by
// the server is the strongest delivery signal available; the mail
// transport offers no acknowledgment beyond that.
type Sender struct {
	cfg    EmailConfig
	logger *log.Logger
}

// NewSender creates a sender with the given SMTP configuration.
func NewSender(cfg EmailConfig, logger *log.Logger) *Sender {
	return &Sender{cfg: cfg, logger: logger}
}

// SendBook mails the e-book bytes as an attachment named filename. A nil
// error means the SMTP server accepted the submission.
func (s *Sender) SendBook(title, filename string, book []byte) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("email delivery is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", title)
	m.SetBody("text/plain", fmt.Sprintf("Attached: %s", title))

	m.Attach(filename,
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(book)
			return err
		}),
		gomail.SetHeader(map[string][]string{
			"Content-Type": {epubMIMEType},
		}),
	)

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 30 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", title, s.cfg.ToEmail, err)
	}

	s.logger.Info().Str("to", s.cfg.ToEmail).Str("title", title).Msg("e-book sent")
	return nil
}
