package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	to, subject, body string
	err               error
}

func (r *recordingSender) Send(to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return r.err
}

func TestMailer_Send(t *testing.T) {
	rs := &recordingSender{}
	m := NewMailer(rs)
	require.NoError(t, m.Send(context.Background(), KindTOTPEnabled, "ana@example.org"))
	require.Equal(t, "ana@example.org", rs.to)
	require.Contains(t, rs.subject, "enabled")

	require.Error(t, m.Send(context.Background(), Kind("nope"), "x@example.org"))

	rs.err = errors.New("smtp down")
	require.Error(t, m.Send(context.Background(), KindAPIKeyCreated, "ana@example.org"))
}

func TestMailer_Noop(t *testing.T) {
	require.NoError(t, NewMailer(nil).Send(context.Background(), KindTOTPDisabled, "ana@example.org"))
}

func TestSMTPSender_Message(t *testing.T) {
	s := NewSMTPSender("smtp.example.org", 587, "no-reply@example.org", "", "")
	var buf bytes.Buffer
	_, err := s.message("ana@example.org", "Hola", "cuerpo").WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "To: ana@example.org")
	require.Contains(t, out, "Subject: Hola")
	require.Contains(t, out, "cuerpo")
}
