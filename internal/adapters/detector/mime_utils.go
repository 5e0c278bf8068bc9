package detector

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
)

// ReadMessage parses an RFC 822 message into the internal message shape
func ReadMessage(r io.Reader) (*core.Message, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	fromName := ""
	fromEmail := strings.TrimSpace(msg.Header.Get("From"))
	if addr, err := mail.ParseAddress(fromEmail); err == nil {
		fromName = addr.Name
		fromEmail = addr.Address
	}

	date, err := msg.Header.Date()
	if err != nil {
		date = time.Now()
	}

	body, err := extractText(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract message body: %w", err)
	}

	id := msg.Header.Get("Message-ID")
	return &core.Message{
		ID:        id,
		DedupKey:  dedupKey(id),
		Date:      date,
		FromEmail: fromEmail,
		FromName:  fromName,
		Subject:   msg.Header.Get("Subject"),
		BodyText:  body,
		Folder:    "local",
	}, nil
}

func dedupKey(messageID string) string {
	if messageID == "" {
		return ""
	}
	sum := md5.Sum([]byte(messageID))
	return hex.EncodeToString(sum[:])
}

// extractText pulls readable text out of the message. Multipart bodies
// are walked recursively for text/plain parts, with a text/html
// fallback when no plain part exists.
func extractText(msg *mail.Message) (string, error) {
	text, err := partText(msg.Header.Get("Content-Type"), msg.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func partText(contentType string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(mediaType, "text/html") {
			return utils.HTMLToText(string(data)), nil
		}
		return string(data), nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var plain, html bytes.Buffer
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever was collected before the malformed part
			break
		}

		partType := part.Header.Get("Content-Type")
		mt, _, _ := mime.ParseMediaType(partType)
		if partType == "" {
			mt = "text/plain"
		}

		switch {
		case strings.HasPrefix(mt, "text/plain"):
			data, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			plain.Write(data)
			plain.WriteString("\n")
		case strings.HasPrefix(mt, "text/html"):
			data, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			html.Write(data)
		case strings.HasPrefix(mt, "multipart/"):
			nested, err := partText(partType, part)
			if err != nil || nested == "" {
				continue
			}
			plain.WriteString(nested)
			plain.WriteString("\n")
		}
	}

	if plain.Len() > 0 {
		return plain.String(), nil
	}
	if html.Len() > 0 {
		return utils.HTMLToText(html.String()), nil
	}
	return "", nil
}
