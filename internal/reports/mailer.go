package reports

import (
	"fmt"
	"net/smtp"
	"sort"

	"github.com/jordan-wright/email"
	"github.com/mopay/agent-service/internal/config"
	"github.com/mopay/agent-service/internal/models"
	"github.com/sirupsen/logrus"
)

// Mailer sends report emails via SMTP.
type Mailer struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewMailer creates a new report mailer.
func NewMailer(cfg *config.Config, logger *logrus.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// SendDailySummary emails the day's activity summary to the given recipient.
func (m *Mailer) SendDailySummary(to string, profile models.Profile, summary models.Summary) error {
	e := email.NewEmail()
	e.From = m.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "MoPay Daily Agent Report"

	body := fmt.Sprintf("Dear %s,\n\n", profile.Name)
	body += fmt.Sprintf(
		"Here is your activity summary:\n\n"+
			"Transactions: %d\n"+
			"Volume: GHS %.2f\n"+
			"Commission earned: GHS %.2f\n",
		summary.Count, summary.TotalAmount, summary.TotalCommission,
	)

	if len(summary.ByType) > 0 {
		body += "\nBy transaction type:\n"
		types := make([]string, 0, len(summary.ByType))
		for t := range summary.ByType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			b := summary.ByType[t]
			body += fmt.Sprintf("  %s: %d transactions, GHS %.2f\n", t, b.Count, b.Amount)
		}
	}
	body += "\nBest regards,\nMoPay"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		m.logger.Errorf("Failed to send report to %s: %v", to, err)
		return fmt.Errorf("failed to send report email: %w", err)
	}

	m.logger.Infof("Report email sent to %s", to)
	return nil
}
