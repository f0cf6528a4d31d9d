package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modbuspro/license-server/pkg/enums"
	pkgerrors "github.com/modbuspro/license-server/pkg/errors"
	"github.com/modbuspro/license-server/pkg/mailer"
)

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestSendLicenseKeyRendersEmail(t *testing.T) {
	fake := &fakeMailer{}
	svc, err := NewService(ServiceParams{Mailer: fake, SupportEmail: "support@modbus.app"})
	require.NoError(t, err)

	err = svc.SendLicenseKey(context.Background(), LicenseKeyEmail{
		To:           "ada@example.com",
		CustomerName: "Ada Lovelace",
		LicenseKey:   "MBPRO-AAAA-AAAA-AAAA-AAAA",
		Tier:         enums.LicenseTierSite,
	})
	require.NoError(t, err)

	require.Len(t, fake.sent, 1)
	msg := fake.sent[0]
	require.Equal(t, "ada@example.com", msg.To)
	require.Equal(t, "Your ModBus Pro License Key", msg.Subject)
	require.Contains(t, msg.HTML, "Site License")
	require.Contains(t, msg.HTML, "MBPRO-AAAA-AAAA-AAAA-AAAA")
	require.Contains(t, msg.HTML, "Ada Lovelace")
	require.Contains(t, msg.HTML, "support@modbus.app")
}

func TestSendLicenseKeyOmitsGreetingWithoutName(t *testing.T) {
	fake := &fakeMailer{}
	svc, err := NewService(ServiceParams{Mailer: fake})
	require.NoError(t, err)

	err = svc.SendLicenseKey(context.Background(), LicenseKeyEmail{
		To:         "ada@example.com",
		LicenseKey: "MBPRO-AAAA-AAAA-AAAA-AAAA",
		Tier:       enums.LicenseTierPersonal,
	})
	require.NoError(t, err)

	require.Len(t, fake.sent, 1)
	require.Contains(t, fake.sent[0].HTML, "Thanks for your purchase!")
}

func TestSendLicenseKeyValidatesInput(t *testing.T) {
	svc, err := NewService(ServiceParams{Mailer: &fakeMailer{}})
	require.NoError(t, err)

	err = svc.SendLicenseKey(context.Background(), LicenseKeyEmail{LicenseKey: "MBPRO-AAAA-AAAA-AAAA-AAAA"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	err = svc.SendLicenseKey(context.Background(), LicenseKeyEmail{To: "ada@example.com"})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSendLicenseKeyWrapsTransportFailure(t *testing.T) {
	fake := &fakeMailer{err: errors.New("relay down")}
	svc, err := NewService(ServiceParams{Mailer: fake})
	require.NoError(t, err)

	err = svc.SendLicenseKey(context.Background(), LicenseKeyEmail{
		To:         "ada@example.com",
		LicenseKey: "MBPRO-AAAA-AAAA-AAAA-AAAA",
		Tier:       enums.LicenseTierTeam,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestNewServiceRequiresMailer(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
