/*
Package notify 在运行结束后发送汇总邮件。
*/
package notify

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"

	"projinfo/internal/model"
	"projinfo/internal/report"
)

// EmailConfig SMTP 配置
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmail    string
	Enabled    bool
}

// Message 已渲染的邮件
type Message struct {
	Subject string
	Text    string
}

// Dialer 发送接口，便于测试替换
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier 运行汇总邮件；仅实现 End，Begin/Record 为空操作
type EmailNotifier struct {
	cfg    EmailConfig
	dialer Dialer
	logger *zap.Logger
}

// NewEmailNotifier 创建邮件通知
func NewEmailNotifier(cfg EmailConfig, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.Timeout = 10 * time.Second
	return &EmailNotifier{cfg: cfg, dialer: d, logger: logger}
}

func (n *EmailNotifier) Begin(model.RunInfo) error { return nil }

func (n *EmailNotifier) Record(model.RunInfo, model.FileOutcome) error { return nil }

// End 发送汇总；未启用时直接返回
func (n *EmailNotifier) End(info model.RunInfo, s *model.RunSummary) error {
	if !n.cfg.Enabled {
		return nil
	}
	return n.Send(Render(info, s))
}

// Send 发送纯文本邮件
func (n *EmailNotifier) Send(msg Message) error {
	m := gomail.NewMessage()
	from := n.cfg.FromEmail
	if from == "" {
		from = n.cfg.SMTPUser
	}
	m.SetHeader("From", from)
	m.SetHeader("To", splitAddresses(n.cfg.ToEmail)...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)

	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.Warn("email send failed", zap.String("to", n.cfg.ToEmail), zap.String("subject", msg.Subject), zap.Error(err))
		return fmt.Errorf("send summary email: %w", err)
	}

	n.logger.Info("email sent", zap.String("subject", msg.Subject))
	return nil
}

// Render 生成汇总邮件
func Render(info model.RunInfo, s *model.RunSummary) Message {
	req := info.Request
	subject := fmt.Sprintf("Project info update %s: %d/%d files updated", req.ProjectNumber, s.Updated, s.Total)
	if len(s.Failed) > 0 {
		subject += fmt.Sprintf(", %d failed", len(s.Failed))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project Name: %s\n", req.ProjectName))
	sb.WriteString(fmt.Sprintf("Project Number: %s\n", req.ProjectNumber))
	if req.Enabled(model.CategoryEquipmentSchedule) {
		sb.WriteString(fmt.Sprintf("Issued For: %s\n", req.IssuedFor))
	}
	sb.WriteString(fmt.Sprintf("Root Folder: %s\n", req.RootFolder))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(report.Summary(s))

	if len(s.Failed) > 0 {
		sb.WriteString("\nFAILED\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for _, o := range s.Failed {
			sb.WriteString(fmt.Sprintf("• %s - %s\n", o.Path, o.Detail()))
		}
	}

	return Message{Subject: subject, Text: sb.String()}
}

func splitAddresses(s string) []string {
	out := []string{}
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
