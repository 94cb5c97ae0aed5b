package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"complete", Message{To: "a@example.com", Subject: "s", HTMLBody: "<p>b</p>"}, false},
		{"missing recipient", Message{Subject: "s", HTMLBody: "<p>b</p>"}, true},
		{"blank subject", Message{To: "a@example.com", Subject: "  ", HTMLBody: "<p>b</p>"}, true},
		{"missing body", Message{To: "a@example.com", Subject: "s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRenderPaymentConfirmation(t *testing.T) {
	msg, err := RenderPaymentConfirmation(PaymentConfirmation{
		Email:          "athlete@example.com",
		Name:           "Ana Souza",
		Plan:           "annual",
		Amount:         480,
		PaymentMethod:  "pix",
		SubscriptionID: "SUB123",
	})
	require.NoError(t, err)

	assert.Equal(t, "athlete@example.com", msg.To)
	assert.Equal(t, "payment-confirmation", msg.Tag)
	assert.Contains(t, msg.HTMLBody, "Ana Souza")
	assert.Contains(t, msg.HTMLBody, "Anual")
	assert.Contains(t, msg.HTMLBody, "480.00")
	assert.Contains(t, msg.HTMLBody, "SUB123")
	assert.NoError(t, msg.Validate())
}

func TestRenderPaymentConfirmation_EscapesName(t *testing.T) {
	msg, err := RenderPaymentConfirmation(PaymentConfirmation{
		Email: "athlete@example.com",
		Name:  "<script>x</script>",
		Plan:  "monthly",
	})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTMLBody, "<script>")
}

func TestSMTPSender_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte

	s := &SMTPSender{
		Host: "smtp.example.com",
		Port: "2525",
		From: "billing@titan.test",
		sendMail: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
			assert.Nil(t, a)
			return nil
		},
	}

	err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "Hello", HTMLBody: "<p>hi</p>"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "billing@titan.test", gotFrom)
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(string(gotBody), "From: billing@titan.test\r\nTo: a@example.com\r\nSubject: Hello\r\n"))
	assert.Contains(t, string(gotBody), "Content-Type: text/html; charset=UTF-8")
}

func TestSMTPSender_RejectsInvalidMessage(t *testing.T) {
	called := false
	s := &SMTPSender{sendMail: func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}}

	err := s.Send(context.Background(), Message{To: "a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.False(t, called)
}

func TestNewPostmarkSender(t *testing.T) {
	_, err := NewPostmarkSender(PostmarkConfig{From: "billing@titan.test"})
	assert.Error(t, err)

	_, err = NewPostmarkSender(PostmarkConfig{ServerToken: "token"})
	assert.Error(t, err)

	s, err := NewPostmarkSender(PostmarkConfig{ServerToken: "token", From: "billing@titan.test"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
