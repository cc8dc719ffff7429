package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"strings"

	"github.com/aditywn/csv-pickup/internal/config"
	"github.com/aditywn/csv-pickup/pkg/logger"
)

// SMTPNotifier emails the run summary with the validation log attached.
// It speaks SMTP over implicit TLS (port 465 by default), matching the
// unattended-job setup this replaces. No third-party mail library exists in
// this stack; the message is assembled with mime/multipart directly.
type SMTPNotifier struct {
	cfg config.EmailConfig
}

// NewSMTPNotifier returns a Notifier for the given settings, or Noop when
// the settings are incomplete. Incomplete settings are a warning, never an
// error: notification is best-effort by design.
func NewSMTPNotifier(cfg config.EmailConfig) Notifier {
	if cfg.Sender == "" || cfg.Receiver == "" || cfg.SMTPServer == "" || cfg.Password == "" {
		logger.Log.Warn().Msg("email settings incomplete, notifications disabled")
		return Noop{}
	}
	return &SMTPNotifier{cfg: cfg}
}

// Notify sends one message. Failure is returned to the caller, who logs it;
// a failed notification never fails the run.
func (n *SMTPNotifier) Notify(ctx context.Context, subject, body, logPath string) error {
	msg, err := n.buildMessage(subject, body, logPath)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(n.cfg.SMTPServer, fmt.Sprintf("%d", n.cfg.SMTPPort))

	dialer := &net.Dialer{}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: n.cfg.SMTPServer})
	if err != nil {
		return fmt.Errorf("connect to smtp server %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, n.cfg.SMTPServer)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake with %s: %w", addr, err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", n.cfg.Sender, n.cfg.Password, n.cfg.SMTPServer)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(n.cfg.Sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(n.cfg.Receiver); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish message: %w", err)
	}
	return client.Quit()
}

// buildMessage assembles a multipart message: plain-text body plus the log
// file as a text attachment when logPath is readable.
func (n *SMTPNotifier) buildMessage(subject, body, logPath string) ([]byte, error) {
	var sb strings.Builder
	mw := multipart.NewWriter(&sb)

	fmt.Fprintf(&sb, "From: %s\r\n", n.cfg.Sender)
	fmt.Fprintf(&sb, "To: %s\r\n", n.cfg.Receiver)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	fmt.Fprintf(&sb, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	// mw writes into sb via the builder it was created with; parts follow
	// the headers emitted above.
	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("build message body: %w", err)
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("build message body: %w", err)
	}

	if logPath != "" {
		logContent, err := os.ReadFile(logPath)
		if err != nil {
			logger.Log.Warn().Str("log", logPath).Err(err).
				Msg("could not attach validation log")
		} else {
			attachment, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":        {"text/plain; charset=utf-8"},
				"Content-Disposition": {`attachment; filename="validation_results.log"`},
			})
			if err != nil {
				return nil, fmt.Errorf("build log attachment: %w", err)
			}
			if _, err := attachment.Write(logContent); err != nil {
				return nil, fmt.Errorf("build log attachment: %w", err)
			}
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish message: %w", err)
	}
	return []byte(sb.String()), nil
}

var _ Notifier = (*SMTPNotifier)(nil)
