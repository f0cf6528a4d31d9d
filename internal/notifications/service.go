package notifications

import (
	"bytes"
	"context"
	"html/template"

	"github.com/modbuspro/license-server/pkg/enums"
	pkgerrors "github.com/modbuspro/license-server/pkg/errors"
	"github.com/modbuspro/license-server/pkg/mailer"
)

// Service delivers customer-facing licensing email.
type Service interface {
	SendLicenseKey(ctx context.Context, input LicenseKeyEmail) error
}

// LicenseKeyEmail carries everything the purchase confirmation needs.
type LicenseKeyEmail struct {
	To           string
	CustomerName string
	LicenseKey   string
	Tier         enums.LicenseTier
}

type service struct {
	mailer       mailer.Mailer
	supportEmail string
}

// ServiceParams wires the notification service dependencies.
type ServiceParams struct {
	Mailer       mailer.Mailer
	SupportEmail string
}

// NewService builds the notification service.
func NewService(params ServiceParams) (Service, error) {
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer required")
	}
	supportEmail := params.SupportEmail
	if supportEmail == "" {
		supportEmail = "support@modbus.app"
	}
	return &service{mailer: params.Mailer, supportEmail: supportEmail}, nil
}

var licenseKeyTemplate = template.Must(template.New("license_key").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a2e; max-width: 560px; margin: 0 auto;">
  <h2>Thanks for your purchase{{if .CustomerName}}, {{.CustomerName}}{{end}}!</h2>
  <p>Your ModBus Pro {{.TierLabel}} plan is ready. Here is your license key:</p>
  <p style="font-size: 20px; font-family: monospace; background: #f4f4f8; padding: 16px; border-radius: 6px; text-align: center;">{{.LicenseKey}}</p>
  <p>Open ModBus Pro, go to <strong>Settings &rarr; License</strong>, and paste the key to activate this machine.</p>
  <p>Keep this email safe. If you run out of activations or lose your key, write to <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>
  <p style="color: #8a8a9e; font-size: 13px;">ModBus Pro</p>
</body>
</html>
`))

// SendLicenseKey renders and dispatches the purchase confirmation email.
func (s *service) SendLicenseKey(ctx context.Context, input LicenseKeyEmail) error {
	if input.To == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if input.LicenseKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}

	var body bytes.Buffer
	err := licenseKeyTemplate.Execute(&body, map[string]string{
		"CustomerName": input.CustomerName,
		"LicenseKey":   input.LicenseKey,
		"TierLabel":    input.Tier.Label(),
		"SupportEmail": s.supportEmail,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render license email")
	}

	msg := mailer.Message{
		To:      input.To,
		Subject: "Your ModBus Pro License Key",
		HTML:    body.String(),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send license email")
	}
	return nil
}
