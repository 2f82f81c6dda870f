package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmlTemplate "html/template"
	"net/url"
	"path/filepath"
	textTemplate "text/template"
	"time"

	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Mailer sends a rendered template to a list of recipients.
type Mailer interface {
	SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error
}

// Client is the part of the go-mail client the service needs.
type Client interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Service struct {
	config        *config.MailConfig
	client        Client
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

func NewService(cfg *config.MailConfig, logger *logging.Service) (*Service, error) {
	logger.Info("initializing mail service",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("encryption", cfg.Encryption),
		zap.String("from_address", cfg.FromAddress))

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.SendTimeout),
	}

	switch cfg.Encryption {
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username))
	}
	if cfg.Password != "" {
		clientOpts = append(clientOpts, mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		logger.Error("failed to create mail client", zap.Error(err), zap.String("host", cfg.Host))
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return NewServiceWithClient(cfg, logger, client)
}

func NewServiceWithClient(cfg *config.MailConfig, logger *logging.Service, client Client) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}

	if err := service.loadTemplates(); err != nil {
		logger.Error("failed to load mail templates", zap.Error(err))
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	return service, nil
}

// loadTemplates parses the embedded templates, then lets files in
// TemplatesDir replace them by name.
func (s *Service) loadTemplates() error {
	var err error
	s.htmlTemplates, err = htmlTemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse embedded HTML templates: %w", err)
	}
	s.textTemplates, err = textTemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return fmt.Errorf("failed to parse embedded text templates: %w", err)
	}

	if s.config.TemplatesDir == "" {
		return nil
	}

	htmlPattern := filepath.Join(s.config.TemplatesDir, "*.html")
	if matches, _ := filepath.Glob(htmlPattern); len(matches) > 0 {
		if s.htmlTemplates, err = s.htmlTemplates.ParseGlob(htmlPattern); err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
	}

	textPattern := filepath.Join(s.config.TemplatesDir, "*.txt")
	if matches, _ := filepath.Glob(textPattern); len(matches) > 0 {
		if s.textTemplates, err = s.textTemplates.ParseGlob(textPattern); err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
	}

	s.logger.Info("mail templates loaded",
		zap.String("templates_dir", s.config.TemplatesDir),
		zap.Int("html_templates", len(s.htmlTemplates.Templates())),
		zap.Int("text_templates", len(s.textTemplates.Templates())))

	return nil
}

func (s *Service) NewMessage() (*mail.Msg, error) {
	message := mail.NewMsg()

	fromAddr := s.config.FromAddress
	if s.config.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}

	if err := message.From(fromAddr); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}

	return message, nil
}

func (s *Service) Send(ctx context.Context, message *mail.Msg) error {
	startTime := time.Now()
	err := s.client.DialAndSendWithContext(ctx, message)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("failed to send email", zap.Error(err), zap.Duration("attempt_duration", duration))
		return err
	}

	s.logger.Info("email sent successfully", zap.Duration("send_duration", duration))
	return nil
}

func (s *Service) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	message, err := s.NewMessage()
	if err != nil {
		return err
	}

	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}

	message.Subject(subject)

	if err := s.renderTemplate(templateName, data, message); err != nil {
		s.logger.Error("failed to render template", zap.Error(err), zap.String("template", templateName))
		return fmt.Errorf("failed to render template: %w", err)
	}

	return s.Send(ctx, message)
}

func (s *Service) renderTemplate(templateName string, data map[string]any, message *mail.Msg) error {
	var hasHTML bool

	if tmpl := s.htmlTemplates.Lookup(templateName + ".html"); tmpl != nil {
		var htmlBuf bytes.Buffer
		if err := tmpl.Execute(&htmlBuf, data); err != nil {
			return fmt.Errorf("failed to execute HTML template: %w", err)
		}
		message.SetBodyString(mail.TypeTextHTML, htmlBuf.String())
		hasHTML = true
	}

	tmpl := s.textTemplates.Lookup(templateName + ".txt")
	if tmpl == nil {
		if !hasHTML {
			return fmt.Errorf("template '%s' not found", templateName)
		}
		return nil
	}

	var textBuf bytes.Buffer
	if err := tmpl.Execute(&textBuf, data); err != nil {
		return fmt.Errorf("failed to execute text template: %w", err)
	}
	if hasHTML {
		message.AddAlternativeString(mail.TypeTextPlain, textBuf.String())
	} else {
		message.SetBodyString(mail.TypeTextPlain, textBuf.String())
	}

	return nil
}

// LogMailer stands in for SMTP when mail is disabled. It only logs.
type LogMailer struct {
	logger *logging.Service
}

func NewLogMailer(logger *logging.Service) *LogMailer {
	return &LogMailer{logger: logger}
}

func (l *LogMailer) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	link, _ := data["Link"].(string)
	l.logger.Info("mail disabled, message not sent",
		zap.String("template", templateName),
		zap.Strings("recipients", to),
		zap.String("subject", subject),
		zap.String("link", redactLink(link)))
	l.logger.Debug("undelivered mail link", zap.String("template", templateName), zap.String("link", link))
	return nil
}

// redactLink hides the token query value of a verification or reset link.
func redactLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	q := u.Query()
	if !q.Has("token") {
		return link
	}
	q.Set("token", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
