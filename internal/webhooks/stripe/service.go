package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/modbuspro/license-server/internal/licenses"
	"github.com/modbuspro/license-server/internal/notifications"
	"github.com/modbuspro/license-server/pkg/db"
	"github.com/modbuspro/license-server/pkg/db/models"
	"github.com/modbuspro/license-server/pkg/enums"
	pkgerrors "github.com/modbuspro/license-server/pkg/errors"
	"github.com/modbuspro/license-server/pkg/logger"
	"github.com/modbuspro/license-server/pkg/metrics"
)

const maxKeyAttempts = 5

type licensesRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (*models.License, error)
	KeyExists(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, license *models.License) (*models.License, error)
}

// Result describes a successfully acknowledged event. Note and Warning feed
// the acknowledgment body so operators can spot skipped deliveries in Stripe's
// dashboard logs.
type Result struct {
	Note    string
	Warning string
}

type ServiceParams struct {
	LicensesRepo licensesRepository
	Checkout     CheckoutLineItemsClient
	Notifier     notifications.Service
	Metrics      *metrics.LicensingMetrics
	Logger       *logger.Logger
	KeyPrefix    string
	PriceTiers   map[string]enums.LicenseTier
}

type Service struct {
	repo       licensesRepository
	checkout   CheckoutLineItemsClient
	notifier   notifications.Service
	metrics    *metrics.LicensingMetrics
	logg       *logger.Logger
	keyPrefix  string
	priceTiers map[string]enums.LicenseTier
}

// NewService builds the checkout fulfillment service. Notifier is optional:
// without it licenses are still issued, just not emailed.
func NewService(params ServiceParams) (*Service, error) {
	if params.LicensesRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "licenses repo required")
	}
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout client required")
	}
	if len(params.PriceTiers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "price tier table required")
	}
	keyPrefix := params.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "MBPRO"
	}
	return &Service{
		repo:       params.LicensesRepo,
		checkout:   params.Checkout,
		notifier:   params.Notifier,
		metrics:    params.Metrics,
		logg:       params.Logger,
		keyPrefix:  keyPrefix,
		priceTiers: params.PriceTiers,
	}, nil
}

// HandleEvent fulfills completed checkouts. Every other event type is
// acknowledged untouched so Stripe does not retry deliveries we will never
// act on.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (*Result, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.metrics.IncWebhookEvent("ignored")
		return &Result{}, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session")
	}
	if session.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}

	priceID, err := s.checkout.FirstPriceID(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list checkout line items")
	}

	tier, ok := s.priceTiers[priceID]
	if !ok {
		s.metrics.IncWebhookEvent("unknown_price")
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("checkout session %s carries unknown price %q", session.ID, priceID))
		}
		return &Result{Warning: "Unknown price ID"}, nil
	}

	existing, err := s.repo.FindBySessionID(ctx, session.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup checkout session")
	}
	if existing != nil {
		s.metrics.IncWebhookEvent("duplicate")
		return &Result{Note: "Already processed"}, nil
	}

	key, err := s.allocateKey(ctx)
	if err != nil {
		return nil, err
	}

	license := &models.License{
		LicenseKey:              key,
		Tier:                    tier,
		MaxActivations:          tier.MaxActivations(),
		Status:                  enums.LicenseStatusActive,
		StripeCheckoutSessionID: session.ID,
	}
	if session.CustomerDetails != nil {
		license.CustomerName = session.CustomerDetails.Name
		license.CustomerEmail = session.CustomerDetails.Email
	}
	if license.CustomerEmail == "" {
		license.CustomerEmail = session.CustomerEmail
	}
	if session.Customer != nil {
		license.StripeCustomerID = session.Customer.ID
	}

	if _, err := s.repo.Create(ctx, license); err != nil {
		// A concurrent delivery for the same session loses the insert race on
		// the unique constraint. Treat the loser as a duplicate.
		if db.IsUniqueViolation(err) {
			if _, findErr := s.repo.FindBySessionID(ctx, session.ID); findErr == nil {
				s.metrics.IncWebhookEvent("duplicate")
				return &Result{Note: "Already processed"}, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create license")
	}

	s.metrics.IncIssued()
	s.metrics.IncWebhookEvent("issued")
	s.sendLicenseEmail(ctx, license)

	return &Result{}, nil
}

func (s *Service) allocateKey(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := licenses.GenerateKey(s.keyPrefix)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate license key")
		}
		exists, err := s.repo.KeyExists(ctx, key)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check key uniqueness")
		}
		if !exists {
			return key, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique license key")
}

// sendLicenseEmail is best-effort: the license row is already committed and
// Stripe must receive a 2xx, so delivery failures are logged and swallowed.
func (s *Service) sendLicenseEmail(ctx context.Context, license *models.License) {
	if s.notifier == nil || license.CustomerEmail == "" {
		return
	}
	err := s.notifier.SendLicenseKey(ctx, notifications.LicenseKeyEmail{
		To:           license.CustomerEmail,
		CustomerName: license.CustomerName,
		LicenseKey:   license.LicenseKey,
		Tier:         license.Tier,
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, fmt.Sprintf("license email to %s failed", license.CustomerEmail), err)
	}
}
