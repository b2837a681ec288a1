// sender.go
package email

import (
	"UberInsight/src/config"
	"UberInsight/src/pipeline"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

const defaultSMTPPort = "465"

// Mailer 运行结束后把导出文件发给收件人
type Mailer struct {
	server   string // 不带端口时使用465
	username string
	password string
	to       []string
	subject  string
	send     func(e *email.Email, addr string, auth smtp.Auth, tlsConfig *tls.Config) error
}

func NewMailer(c *config.Config) *Mailer {
	return &Mailer{
		server:   c.SendEmail.Server,
		username: c.SendEmail.Username,
		password: c.SendEmail.Password,
		to:       c.SendEmail.To,
		subject:  c.SendEmail.Subject,
		send: func(e *email.Email, addr string, auth smtp.Auth, tlsConfig *tls.Config) error {
			return e.SendWithTLS(addr, auth, tlsConfig)
		},
	}
}

// Notify 满足 pipeline.Notifier
func (m *Mailer) Notify(ctx context.Context, r *pipeline.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(m.to) == 0 {
		return fmt.Errorf("未配置收件人")
	}

	e, err := m.compose(r)
	if err != nil {
		return err
	}

	addr := m.server
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, defaultSMTPPort)
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("邮件服务器地址无效: %w", err)
	}

	if err := m.send(e, addr, smtp.PlainAuth("", m.username, m.password, host), &tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, addr)
	}
	return nil
}

func (m *Mailer) compose(r *pipeline.Report) (*email.Email, error) {
	e := email.NewEmail()
	e.From = fmt.Sprintf("UberInsight <%s>", m.username)
	e.To = m.to
	e.Subject = m.subject
	if e.Subject == "" {
		e.Subject = "Uber pickups dashboard data"
	}
	e.Text = []byte(strings.Join(r.Lines(), "\n") + "\n")

	for _, path := range r.Attachments() {
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}
