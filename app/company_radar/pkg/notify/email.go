package notify

import (
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
)

// EmailSender 通过 SMTP 投递研究报告
type EmailSender struct {
	cfg config.EmailConfig
}

// NewEmailSender 创建邮件发送器
func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// SendReport 发送报告邮件。HTML 为正文，Markdown 作为纯文本备选。
// 未启用时直接返回 nil
func (s *EmailSender) SendReport(target, markdown, html string) error {
	if !s.cfg.Enabled {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", fmt.Sprintf("公司研究报告：%s", target))

	if html != "" {
		m.SetBody("text/plain", markdown)
		m.AddAlternative("text/html", html)
	} else {
		m.SetBody("text/plain", markdown)
	}

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		logger.Log.Errorf("报告邮件发送失败 [%s]: %v", target, err)
		return err
	}
	logger.Log.Infof("报告邮件已发送 [%s] -> %s", target, s.cfg.ToEmail)
	return nil
}
