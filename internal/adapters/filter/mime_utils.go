package filter

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/mikey/email-classifier/internal/core"
)

const maxMultipartDepth = 5

var headerDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// parseEmail reads a raw RFC 822 message into an Email. from and to come from
// the SMTP envelope when present and fall back to the message headers.
func parseEmail(raw []byte, from string, to []string) (*core.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	email := &core.Email{
		From:    from,
		To:      to,
		Subject: decodeHeader(msg.Header.Get("Subject")),
		Body:    body,
		Headers: make(map[string][]string, len(msg.Header)),
	}
	for key, values := range msg.Header {
		email.Headers[key] = values
	}
	if email.From == "" {
		if addr, err := mail.ParseAddress(msg.Header.Get("From")); err == nil {
			email.From = addr.Address
		}
	}
	if len(email.To) == 0 {
		if addrs, err := msg.Header.AddressList("To"); err == nil {
			for _, a := range addrs {
				email.To = append(email.To, a.Address)
			}
		}
	}
	return email, nil
}

// extractTextFromMessage returns the readable text of a message. Plain text
// parts win; HTML parts are converted only when no plain part exists.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	var plain, html []string
	err := collectText(
		msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"),
		msg.Body, 0, &plain, &html,
	)
	if err != nil {
		return "", err
	}
	if len(plain) > 0 {
		return strings.TrimSpace(strings.Join(plain, "\n")), nil
	}
	if len(html) > 0 {
		return htmlToText(strings.Join(html, "\n"))
	}
	return "", nil
}

func collectText(contentType, transferEncoding string, body io.Reader, depth int, plain, html *[]string) error {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// unparseable type: treat the body as plain text
		mediaType, params = "text/plain", nil
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" || depth >= maxMultipartDepth {
			return nil
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				// keep what was read before the broken part
				if len(*plain)+len(*html) > 0 {
					return nil
				}
				return fmt.Errorf("failed to read multipart body: %w", err)
			}
			if isAttachment(part.Header.Get("Content-Disposition")) {
				continue
			}
			if err := collectText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part, depth+1, plain, html); err != nil {
				return err
			}
		}
	case mediaType == "text/plain", mediaType == "text/html":
		text, err := readPart(body, transferEncoding, params["charset"])
		if err != nil {
			return err
		}
		if mediaType == "text/plain" {
			*plain = append(*plain, text)
		} else {
			*html = append(*html, text)
		}
	}
	return nil
}

func readPart(body io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	}
	if r, err := charsetReader(charset, body); err == nil {
		body = r
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read body part: %w", err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// charsetReader decodes from any charset known to the WHATWG encoding index.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

func isAttachment(disposition string) bool {
	d, _, err := mime.ParseMediaType(disposition)
	return err == nil && d == "attachment"
}

// decodeHeader decodes RFC 2047 encoded words, returning the input unchanged
// when it cannot be decoded.
func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// htmlToText keeps the visible text of an HTML body, one block per line.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
