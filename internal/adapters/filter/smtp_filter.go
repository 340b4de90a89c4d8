package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/ports"
	"github.com/mikey/email-classifier/internal/whitelist"
)

// SMTPOptions configures the SMTP content filter.
type SMTPOptions struct {
	ListenAddr       string
	RelayEnabled     bool
	RelayAddr        string
	RelayPort        int
	LabelHeader      string
	ConfidenceHeader string
	CategoryHeader   string
	ClassifyTimeout  time.Duration
}

// SMTPFilter receives mail from the MTA, tags it with the classification and
// relays it to the next hop.
type SMTPFilter struct {
	service   ports.Classifier
	whitelist *whitelist.Checker
	logger    *zap.Logger
	opts      SMTPOptions
	server    *smtp.Server
	// relay is swapped in tests
	relay func(sender string, recipients []string, data []byte) error
}

// NewSMTPFilter creates a new SMTP content filter
func NewSMTPFilter(service ports.Classifier, checker *whitelist.Checker, logger *zap.Logger, opts SMTPOptions) *SMTPFilter {
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = time.Minute
	}
	f := &SMTPFilter{
		service:   service,
		whitelist: checker,
		logger:    logger,
		opts:      opts,
	}
	f.relay = f.sendToRelay
	return f
}

// Start starts the SMTP server
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = f.opts.ListenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting", zap.String("address", f.opts.ListenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the SMTP server
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies a parsed email
func (f *SMTPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	return f.service.ClassifyEmail(ctx, email)
}

// handleMessage classifies raw and relays it with the result headers.
// Messages that cannot be classified are relayed untouched.
func (f *SMTPFilter) handleMessage(sender string, recipients []string, raw []byte) error {
	if f.whitelist != nil && f.whitelist.IsWhitelisted(sender) {
		f.logger.Info("Relaying whitelisted sender without classification", zap.String("from", sender))
		return f.forward(sender, recipients, raw)
	}

	email, err := parseEmail(raw, sender, recipients)
	if err != nil {
		f.logger.Warn("Relaying unparseable message untouched", zap.Error(err), zap.String("from", sender))
		return f.forward(sender, recipients, raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.opts.ClassifyTimeout)
	defer cancel()

	result, err := f.ProcessEmail(ctx, email)
	if err != nil {
		f.logger.Warn("Relaying unclassified message",
			zap.Error(err),
			zap.String("from", sender))
		return f.forward(sender, recipients, raw)
	}

	tagged := rewriteHeaders(raw, []headerField{
		{f.opts.LabelHeader, result.Label},
		{f.opts.ConfidenceHeader, fmt.Sprintf("%.3f", result.Confidence)},
		{f.opts.CategoryHeader, result.Category},
	})

	f.logger.Info("Processed email",
		zap.String("request_id", result.ProcessingID),
		zap.String("from", sender),
		zap.String("label", result.Label),
		zap.Float64("confidence", result.Confidence),
		zap.String("category", result.Category),
		zap.Bool("degraded", result.Degraded()))

	return f.forward(sender, recipients, tagged)
}

func (f *SMTPFilter) forward(sender string, recipients []string, data []byte) error {
	if !f.opts.RelayEnabled {
		f.logger.Warn("Relay disabled, message dropped after classification", zap.String("from", sender))
		return nil
	}
	if err := f.relay(sender, recipients, data); err != nil {
		f.logger.Error("Failed to relay email", zap.Error(err), zap.String("from", sender))
		return err
	}
	return nil
}

// sendToRelay delivers the message to the next hop
func (f *SMTPFilter) sendToRelay(sender string, recipients []string, data []byte) error {
	addr := net.JoinHostPort(f.opts.RelayAddr, fmt.Sprint(f.opts.RelayPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := 0
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient", zap.String("recipient", rcpt), zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// already delivered
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

type headerField struct {
	name  string
	value string
}

// rewriteHeaders prepends fields to the message, removing any existing
// headers with the same names so senders cannot forge them. The body is kept
// byte for byte.
func rewriteHeaders(raw []byte, fields []headerField) []byte {
	headerEnd, sepLen := bytes.Index(raw, []byte("\r\n\r\n")), 4
	if headerEnd < 0 {
		headerEnd, sepLen = bytes.Index(raw, []byte("\n\n")), 2
	}
	if headerEnd < 0 {
		headerEnd, sepLen = len(raw), 0
	}

	drop := make(map[string]bool, len(fields))
	for _, field := range fields {
		drop[strings.ToLower(field.name)] = true
	}

	var out bytes.Buffer
	for _, field := range fields {
		if field.name == "" {
			continue
		}
		fmt.Fprintf(&out, "%s: %s\r\n", field.name, sanitizeHeaderValue(field.value))
	}

	skipping := false
	for _, line := range strings.SplitAfter(string(raw[:headerEnd]), "\n") {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if !skipping {
				out.WriteString(line)
			}
			continue
		}
		name, _, _ := strings.Cut(line, ":")
		skipping = drop[strings.ToLower(strings.TrimSpace(name))]
		if !skipping {
			out.WriteString(line)
		}
	}
	if !bytes.HasSuffix(out.Bytes(), []byte("\n")) {
		out.WriteString("\r\n")
	}
	if sepLen > 0 {
		out.WriteString("\r\n")
		out.Write(raw[headerEnd+sepLen:])
	}
	return out.Bytes()
}

func sanitizeHeaderValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// AuthPlain is refused; the filter only talks to the local MTA
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.filter.handleMessage(s.sender, s.recipients, raw)
}

func (s *smtpSession) Logout() error {
	return nil
}
