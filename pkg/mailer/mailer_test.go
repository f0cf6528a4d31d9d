package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modbuspro/license-server/pkg/config"
)

func TestNewSMTPMailerRequiresTransportConfig(t *testing.T) {
	_, err := NewSMTPMailer(config.SMTPConfig{Port: "587", From: "x@y.z"})
	require.Error(t, err)

	_, err = NewSMTPMailer(config.SMTPConfig{Host: "smtp.test", Port: "587", From: "x@y.z"})
	require.NoError(t, err)
}

func TestBuildMIMEMessage(t *testing.T) {
	payload := string(BuildMIMEMessage("ModBus Pro <license@modbus.app>", Message{
		To:      "buyer@example.com",
		Subject: "Your ModBus Pro Personal License Key",
		HTML:    "<p>MBPRO-AAAA-AAAA-AAAA-AAAA</p>",
	}))

	require.True(t, strings.HasPrefix(payload, "From: ModBus Pro <license@modbus.app>\r\n"))
	require.Contains(t, payload, "To: buyer@example.com\r\n")
	require.Contains(t, payload, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>MBPRO-AAAA-AAAA-AAAA-AAAA</p>")
}
