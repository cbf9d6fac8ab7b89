// Package mailparse turns a raw notification email into the decoded HTML body the
// link extractor works on. MIME handling is delegated to go-message.
package mailparse

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Message is the part of an email the pipeline cares about.
type Message struct {
	Subject string
	From    string
	HTML    string
	Text    string
	// Raw is true when the input was not a MIME message and HTML holds it verbatim.
	Raw bool
}

// Body returns the HTML body, or the plain-text body when there is no HTML part.
func (m *Message) Body() string {
	if m.HTML != "" {
		return m.HTML
	}
	return m.Text
}

// Parse reads a raw RFC 5322 message. Input that is not a MIME message (for
// example an HTML file saved from a mail client) is returned as-is.
func Parse(raw string) (*Message, error) {
	if !looksLikeMessage(raw) {
		return &Message{HTML: raw, Raw: true}, nil
	}

	mr, err := mail.CreateReader(strings.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return &Message{HTML: raw, Raw: true}, nil
	}
	if mr == nil {
		return &Message{HTML: raw, Raw: true}, nil
	}
	defer func() { _ = mr.Close() }()

	msg := &Message{}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].String()
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read message part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s part: %w", contentType, err)
		}

		switch contentType {
		case "text/html":
			if msg.HTML == "" {
				msg.HTML = string(body)
			}
		case "text/plain":
			if msg.Text == "" {
				msg.Text = string(body)
			}
		}
	}

	if msg.HTML == "" && msg.Text == "" {
		msg.HTML = raw
		msg.Raw = true
	}
	return msg, nil
}

// looksLikeMessage reports whether the first line is a header field.
func looksLikeMessage(raw string) bool {
	line, _, _ := strings.Cut(strings.TrimLeft(raw, "\r\n"), "\n")
	name, _, ok := strings.Cut(line, ":")
	if !ok || name == "" {
		return false
	}
	return !strings.ContainsAny(name, " \t<>")
}
