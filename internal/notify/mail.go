package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"

	html "github.com/gofiber/template/html/v2"

	"krishighor/internal/domain"
	applog "krishighor/internal/log"
)

//go:embed templates/*.html
var templatesFS embed.FS

type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailNotifier e-mails an HTML confirmation to the shipping address.
type MailNotifier struct {
	Host, User, Pass, From string
	Port                   int
	Send                   SendFunc

	views *html.Engine
}

func NewMailNotifier(host string, port int, user, pass, from string) (*MailNotifier, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	views := html.NewFileSystem(http.FS(sub), ".html")
	views.AddFunc("humanize", domain.Humanize)
	if err := views.Load(); err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	if from == "" {
		from = user
	}
	return &MailNotifier{Host: host, Port: port, User: user, Pass: pass, From: from, Send: smtp.SendMail, views: views}, nil
}

func (m *MailNotifier) Name() string { return "mail" }

// Render produces the HTML body for c.
func (m *MailNotifier) Render(c Confirmation) (string, error) {
	var buf bytes.Buffer
	if err := m.views.Render(&buf, "confirmation", c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *MailNotifier) Notify(ctx context.Context, c Confirmation) error {
	to := strings.TrimSpace(c.Order.ShippingEmail)
	if to == "" {
		applog.Info(nil, "notify.mail.skip", map[string]any{"order_id": c.Order.ID, "reason": "no shipping email"})
		return nil
	}
	body, err := m.Render(c)
	if err != nil {
		return err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: KrishiGhor Order Confirmation - #%s\r\n", c.Order.ID)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	addr := m.Host + ":" + strconv.Itoa(m.Port)

	done := make(chan error, 1)
	go func() { done <- m.Send(addr, auth, m.From, []string{to}, msg.Bytes()) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
