package activations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modbuspro/license-server/internal/licenses"
	"github.com/modbuspro/license-server/pkg/db/models"
	"github.com/modbuspro/license-server/pkg/enums"
	pkgerrors "github.com/modbuspro/license-server/pkg/errors"
	"github.com/modbuspro/license-server/pkg/metrics"
)

type licensesRepository interface {
	FindByKey(ctx context.Context, key string) (*models.License, error)
}

type activationsRepository interface {
	FindByLicenseAndFingerprint(ctx context.Context, licenseID uuid.UUID, fingerprint string) (*models.Activation, error)
	FindOwned(ctx context.Context, licenseID, activationID uuid.UUID) (*models.Activation, error)
	CountForLicense(ctx context.Context, licenseID uuid.UUID) (int64, error)
	Create(ctx context.Context, activation *models.Activation) (*models.Activation, error)
	Delete(ctx context.Context, activationID uuid.UUID) error
	TouchValidated(ctx context.Context, activationID uuid.UUID, at time.Time) error
}

// Service exposes machine binding semantics: activate, deactivate, and soft
// validation.
type Service interface {
	Activate(ctx context.Context, input ActivateInput) (*ActivateResult, error)
	Deactivate(ctx context.Context, key string, activationID uuid.UUID) error
	Validate(ctx context.Context, key string, activationID uuid.UUID) (*ValidateResult, error)
}

// ActivateInput carries the machine identity binding request.
type ActivateInput struct {
	Key         string
	Fingerprint string
	Label       string
	Hostname    string
	Platform    string
}

// ActivateResult identifies the binding and the purchaser it belongs to.
type ActivateResult struct {
	ActivationID  uuid.UUID
	CustomerName  string
	CustomerEmail string
}

// ValidateResult reports the license status. Customer identity is populated
// only when the license is still active.
type ValidateResult struct {
	LicenseID     uuid.UUID
	Status        enums.LicenseStatus
	CustomerName  string
	CustomerEmail string
	Validated     bool
}

type service struct {
	licenseRepo  licensesRepository
	repo         activationsRepository
	metrics      *metrics.LicensingMetrics
	supportEmail string
	now          func() time.Time
}

// ServiceParams wires the activation service dependencies.
type ServiceParams struct {
	LicensesRepo    licensesRepository
	ActivationsRepo activationsRepository
	Metrics         *metrics.LicensingMetrics
	SupportEmail    string
}

// NewService builds an activation service backed by the provided repositories.
func NewService(params ServiceParams) (Service, error) {
	if params.LicensesRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "licenses repository required")
	}
	if params.ActivationsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "activations repository required")
	}
	supportEmail := params.SupportEmail
	if supportEmail == "" {
		supportEmail = "support@modbus.app"
	}
	return &service{
		licenseRepo:  params.LicensesRepo,
		repo:         params.ActivationsRepo,
		metrics:      params.Metrics,
		supportEmail: supportEmail,
		now:          time.Now,
	}, nil
}

func (s *service) Activate(ctx context.Context, input ActivateInput) (*ActivateResult, error) {
	key := licenses.NormalizeKey(input.Key)
	fingerprint := strings.TrimSpace(input.Fingerprint)
	if key == "" || fingerprint == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Missing required fields: key, meta.fingerprint")
	}

	license, err := s.findLicense(ctx, key)
	if err != nil {
		return nil, err
	}

	if license.Status != enums.LicenseStatusActive {
		s.metrics.IncActivationDenied("license_status")
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("License has been %s. Contact %s for assistance.", license.Status, s.supportEmail))
	}

	// A machine that already holds a slot may always re-fetch its binding,
	// even when the license is currently full.
	existing, err := s.repo.FindByLicenseAndFingerprint(ctx, license.ID, fingerprint)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup existing activation")
	}
	if existing != nil {
		s.metrics.IncActivation()
		return &ActivateResult{
			ActivationID:  existing.ID,
			CustomerName:  license.CustomerName,
			CustomerEmail: license.CustomerEmail,
		}, nil
	}

	count, err := s.repo.CountForLicense(ctx, license.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count activations")
	}
	if count >= int64(license.MaxActivations) {
		s.metrics.IncActivationDenied("quota")
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, quotaMessage(license.MaxActivations, s.supportEmail))
	}

	created, err := s.repo.Create(ctx, &models.Activation{
		LicenseID:   license.ID,
		Fingerprint: fingerprint,
		Label:       strings.TrimSpace(input.Label),
		Hostname:    strings.TrimSpace(input.Hostname),
		Platform:    strings.TrimSpace(input.Platform),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create activation")
	}

	s.metrics.IncActivation()
	return &ActivateResult{
		ActivationID:  created.ID,
		CustomerName:  license.CustomerName,
		CustomerEmail: license.CustomerEmail,
	}, nil
}

func (s *service) Deactivate(ctx context.Context, key string, activationID uuid.UUID) error {
	normalized := licenses.NormalizeKey(key)
	if normalized == "" || activationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "Missing required fields: key, activation_id")
	}

	license, err := s.findLicense(ctx, normalized)
	if err != nil {
		return notFoundAsActivationMiss(err)
	}

	if _, err := s.repo.FindOwned(ctx, license.ID, activationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Activation not found.")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify activation ownership")
	}

	if err := s.repo.Delete(ctx, activationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete activation")
	}
	return nil
}

func (s *service) Validate(ctx context.Context, key string, activationID uuid.UUID) (*ValidateResult, error) {
	normalized := licenses.NormalizeKey(key)
	if normalized == "" || activationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Missing required fields: key, activation_id")
	}

	license, err := s.findLicense(ctx, normalized)
	if err != nil {
		return nil, notFoundAsActivationMiss(err)
	}

	if _, err := s.repo.FindOwned(ctx, license.ID, activationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Activation not found.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup activation")
	}

	if license.Status != enums.LicenseStatusActive {
		return &ValidateResult{
			LicenseID: license.ID,
			Status:    license.Status,
		}, nil
	}

	// Advisory telemetry only: a failed timestamp update never blocks the
	// success response.
	result := &ValidateResult{
		LicenseID:     license.ID,
		Status:        license.Status,
		CustomerName:  license.CustomerName,
		CustomerEmail: license.CustomerEmail,
		Validated:     true,
	}
	if err := s.repo.TouchValidated(ctx, activationID, s.now().UTC()); err != nil {
		return result, nil
	}
	return result, nil
}

func (s *service) findLicense(ctx context.Context, key string) (*models.License, error) {
	license, err := s.licenseRepo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Invalid license key. Please check and try again.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}
	return license, nil
}

// notFoundAsActivationMiss rewrites an unknown-key miss so deactivate and
// validate report the same 404 regardless of which half of the pair failed.
func notFoundAsActivationMiss(err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Activation not found.")
	}
	return err
}

func quotaMessage(limit int, supportEmail string) string {
	plural := ""
	if limit > 1 {
		plural = "s"
	}
	return fmt.Sprintf("Activation limit reached (%d machine%s). Deactivate another machine first, or contact %s.", limit, plural, supportEmail)
}
