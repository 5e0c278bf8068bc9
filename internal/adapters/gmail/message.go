package gmail

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
)

// parseMessage converts a full-format Gmail message into the internal
// message shape
func parseMessage(m *gmail.Message, folder string) *core.Message {
	fromName, fromEmail := parseFrom(headerValue(m, "From"))
	return &core.Message{
		ID:        m.Id,
		DedupKey:  dedupKey(m),
		Date:      time.UnixMilli(m.InternalDate),
		FromEmail: fromEmail,
		FromName:  fromName,
		Subject:   headerValue(m, "Subject"),
		BodyText:  messageBody(m.Payload),
		Folder:    folder,
	}
}

// dedupKey derives a provider-independent identity for the message from
// its Message-ID header, falling back to the Gmail id when absent
func dedupKey(m *gmail.Message) string {
	if mid := headerValue(m, "Message-ID"); mid != "" {
		sum := md5.Sum([]byte(mid))
		return hex.EncodeToString(sum[:])
	}
	return m.Id
}

// headerValue extracts a named header value from a Gmail message
func headerValue(m *gmail.Message, header string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// parseFrom splits a From header into display name and address. A
// header that does not parse as an address is returned as-is in the
// address position so downstream matching still sees something.
func parseFrom(raw string) (name, email string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", raw
	}
	return addr.Name, addr.Address
}

// messageBody extracts readable text from the message payload. It
// prefers a text/plain part and falls back to stripping a text/html
// part down to its text content.
func messageBody(p *gmail.MessagePart) string {
	if data := findPart(p, "text/plain"); data != "" {
		return data
	}
	if data := findPart(p, "text/html"); data != "" {
		return utils.HTMLToText(data)
	}
	return ""
}

// findPart walks the MIME tree depth-first for the first part with the
// wanted type that carries inline body data
func findPart(p *gmail.MessagePart, mimeType string) string {
	if p == nil {
		return ""
	}
	if strings.HasPrefix(p.MimeType, mimeType) && p.Body != nil && p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}
	for _, part := range p.Parts {
		if data := findPart(part, mimeType); data != "" {
			return data
		}
	}
	return ""
}

// decodeBody decodes Gmail body data, which is usually URL-safe base64
// but occasionally standard base64
func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

