package detector

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMessageSimple(t *testing.T) {
	raw := "From: Jane Doe <jane@example.com>\r\n" +
		"Subject: Lunch tomorrow?\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
		"Message-ID: <abc123@mail.example.com>\r\n" +
		"\r\n" +
		"See you at noon.\r\n"

	msg, err := ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", msg.FromName)
	assert.Equal(t, "jane@example.com", msg.FromEmail)
	assert.Equal(t, "Lunch tomorrow?", msg.Subject)
	assert.Equal(t, "<abc123@mail.example.com>", msg.ID)
	assert.NotEmpty(t, msg.DedupKey)
	assert.Equal(t, 2006, msg.Date.Year())
	assert.Equal(t, "See you at noon.", msg.BodyText)
	assert.Equal(t, "local", msg.Folder)
}

func TestReadMessageMissingDateDefaultsToNow(t *testing.T) {
	raw := "From: a@b.com\r\nSubject: hi\r\n\r\nbody\r\n"

	msg, err := ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now(), msg.Date, 5*time.Second)
}

func TestReadMessageMultipartPrefersPlainText(t *testing.T) {
	raw := "From: deals@marketing.example.com\r\n" +
		"Subject: Huge sale\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUND\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>HTML version</p>\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Plain version\r\n" +
		"--BOUND--\r\n"

	msg, err := ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Plain version", msg.BodyText)
}

func TestReadMessageHTMLOnlyFallsBackToStrippedText(t *testing.T) {
	raw := "From: deals@marketing.example.com\r\n" +
		"Subject: Huge sale\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<html><body><p>Hello &amp; welcome</p><script>var x = 1;</script></body></html>\r\n"

	msg, err := ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Hello & welcome", msg.BodyText)
}

func TestReadMessageNestedMultipart(t *testing.T) {
	raw := "From: billing@stripe.com\r\n" +
		"Subject: Receipt\r\n" +
		"Content-Type: multipart/mixed; boundary=OUTER\r\n" +
		"\r\n" +
		"--OUTER\r\n" +
		"Content-Type: multipart/alternative; boundary=INNER\r\n" +
		"\r\n" +
		"--INNER\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Nested text\r\n" +
		"--INNER--\r\n" +
		"--OUTER\r\n" +
		"Content-Type: application/pdf\r\n" +
		"\r\n" +
		"%PDF-1.4\r\n" +
		"--OUTER--\r\n"

	msg, err := ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Nested text", msg.BodyText)
}

func TestReadMessagePartWithoutContentType(t *testing.T) {
	raw := "From: a@b.com\r\n" +
		"Subject: hi\r\n" +
		"Content-Type: multipart/mixed; boundary=BOUND\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"\r\n" +
		"Implicit plain text\r\n" +
		"--BOUND--\r\n"

	msg, err := ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Implicit plain text", msg.BodyText)
}

func TestReadMessageRejectsGarbage(t *testing.T) {
	_, err := ReadMessage(strings.NewReader("not a mail message"))
	assert.Error(t, err)
}
