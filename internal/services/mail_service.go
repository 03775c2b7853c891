package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"strings"

	"github.com/rnrnshn/alx-polly/internal/models"

	"github.com/sirupsen/logrus"
)

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteURL  string
	Enabled  bool

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailService(siteURL string) *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		logrus.Warn("MailService disabled: missing SMTP environment variables")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		SiteURL:  strings.TrimRight(siteURL, "/"),
		Enabled:  enabled,
		send:     smtp.SendMail,
	}
}

func (s *MailService) deliver(to []string, subject, body string) error {
	if !s.Enabled {
		return nil
	}

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: Polly <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

	if err := s.send(addr, auth, s.From, to, msg); err != nil {
		logrus.WithFields(logrus.Fields{"to": to, "error": err}).Error("Failed to send email")
		return err
	}
	logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email sent")
	return nil
}

var pollClosedTemplate = template.Must(template.New("poll_closed").Parse(`<p>Your poll <strong>{{.Title}}</strong> has closed with {{.Total}} vote{{if ne .Total 1}}s{{end}}.</p>
<ul>
{{range .Results}}<li>{{.OptionText}}: {{.VoteCount}} ({{printf "%.2f" .Percentage}}%)</li>
{{end}}</ul>
{{if .Link}}<p><a href="{{.Link}}">See the full results</a></p>{{end}}`))

func renderPollClosed(title, link string, total int64, results []models.OptionResult) (string, error) {
	var buf bytes.Buffer
	err := pollClosedTemplate.Execute(&buf, map[string]interface{}{
		"Title":   title,
		"Total":   total,
		"Results": results,
		"Link":    link,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute template poll_closed: %w", err)
	}
	return buf.String(), nil
}

// SendPollClosed mails a poll owner the final tally.
func (s *MailService) SendPollClosed(email string, poll *models.Poll, total int64, results []models.OptionResult) error {
	if !s.Enabled || email == "" {
		return nil
	}

	link := ""
	if s.SiteURL != "" {
		link = s.SiteURL + "/polls/" + poll.ID
	}
	body, err := renderPollClosed(poll.Title, link, total, results)
	if err != nil {
		return err
	}
	return s.deliver([]string{email}, "Your poll \""+poll.Title+"\" has closed", body)
}
