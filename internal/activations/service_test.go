package activations

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/modbuspro/license-server/internal/licenses"
	"github.com/modbuspro/license-server/pkg/db/models"
	"github.com/modbuspro/license-server/pkg/enums"
	pkgerrors "github.com/modbuspro/license-server/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.License{}, &models.Activation{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		LicensesRepo:    licenses.NewRepository(db),
		ActivationsRepo: NewRepository(db),
		SupportEmail:    "support@modbus.app",
	})
	require.NoError(t, err)
	return svc
}

func seedLicense(t *testing.T, db *gorm.DB, tier enums.LicenseTier, status enums.LicenseStatus) *models.License {
	t.Helper()
	license := &models.License{
		LicenseKey:              "MBPRO-AAAA-AAAA-AAAA-AAAA",
		Tier:                    tier,
		MaxActivations:          tier.MaxActivations(),
		Status:                  status,
		CustomerName:            "Ada Lovelace",
		CustomerEmail:           "ada@example.com",
		StripeCheckoutSessionID: "cs_test_" + uuid.NewString(),
		StripeCustomerID:        "cus_test",
	}
	require.NoError(t, db.Create(license).Error)
	return license
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestActivateIsIdempotentPerFingerprint(t *testing.T) {
	db := newTestDB(t)
	seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)
	svc := newTestService(t, db)
	ctx := context.Background()

	first, err := svc.Activate(ctx, ActivateInput{Key: "mbpro-aaaa-aaaa-aaaa-aaaa", Fingerprint: "f1"})
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", first.CustomerName)

	second, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)
	require.Equal(t, first.ActivationID, second.ActivationID)

	var count int64
	require.NoError(t, db.Model(&models.Activation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestActivateEnforcesQuota(t *testing.T) {
	db := newTestDB(t)
	seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)

	_, err = svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f2"})
	requireCode(t, err, pkgerrors.CodeForbidden)
	require.Contains(t, err.Error(), "Activation limit reached (1 machine)")

	var count int64
	require.NoError(t, db.Model(&models.Activation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestActivateFullLicenseStillReturnsExistingBinding(t *testing.T) {
	db := newTestDB(t)
	seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)
	svc := newTestService(t, db)
	ctx := context.Background()

	first, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)

	// The bound machine bypasses the quota check entirely.
	again, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)
	require.Equal(t, first.ActivationID, again.ActivationID)
}

func TestDeactivateFreesQuotaSlot(t *testing.T) {
	db := newTestDB(t)
	seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)
	svc := newTestService(t, db)
	ctx := context.Background()

	first, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)

	_, err = svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f2"})
	requireCode(t, err, pkgerrors.CodeForbidden)

	require.NoError(t, svc.Deactivate(ctx, "MBPRO-AAAA-AAAA-AAAA-AAAA", first.ActivationID))

	replacement, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f2"})
	require.NoError(t, err)
	require.NotEqual(t, first.ActivationID, replacement.ActivationID)
}

func TestReactivateAfterDeactivateCreatesNewBinding(t *testing.T) {
	db := newTestDB(t)
	seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)
	svc := newTestService(t, db)
	ctx := context.Background()

	first, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, "MBPRO-AAAA-AAAA-AAAA-AAAA", first.ActivationID))

	second, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)
	require.NotEqual(t, first.ActivationID, second.ActivationID)
}

func TestDeactivateRejectsForeignActivation(t *testing.T) {
	db := newTestDB(t)
	seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)

	other := &models.License{
		LicenseKey:              "MBPRO-BBBB-BBBB-BBBB-BBBB",
		Tier:                    enums.LicenseTierTeam,
		MaxActivations:          5,
		Status:                  enums.LicenseStatusActive,
		StripeCheckoutSessionID: "cs_test_other",
	}
	require.NoError(t, db.Create(other).Error)

	svc := newTestService(t, db)
	ctx := context.Background()

	bound, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-BBBB-BBBB-BBBB-BBBB", Fingerprint: "f1"})
	require.NoError(t, err)

	err = svc.Deactivate(ctx, "MBPRO-AAAA-AAAA-AAAA-AAAA", bound.ActivationID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestActivateRejectsNonActiveLicense(t *testing.T) {
	db := newTestDB(t)
	seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusRevoked)
	svc := newTestService(t, db)

	_, err := svc.Activate(context.Background(), ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	requireCode(t, err, pkgerrors.CodeForbidden)
	require.Contains(t, err.Error(), "License has been revoked")
}

func TestActivateUnknownKey(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Activate(context.Background(), ActivateInput{Key: "MBPRO-ZZZZ-ZZZZ-ZZZZ-ZZZZ", Fingerprint: "f1"})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestActivateRequiresKeyAndFingerprint(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Activate(context.Background(), ActivateInput{Key: "", Fingerprint: "f1"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Activate(context.Background(), ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "   "})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestValidateActiveLicenseTouchesTimestamp(t *testing.T) {
	db := newTestDB(t)
	license := seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)
	svc := newTestService(t, db)
	ctx := context.Background()

	bound, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)

	result, err := svc.Validate(ctx, "MBPRO-AAAA-AAAA-AAAA-AAAA", bound.ActivationID)
	require.NoError(t, err)
	require.Equal(t, license.ID, result.LicenseID)
	require.Equal(t, enums.LicenseStatusActive, result.Status)
	require.Equal(t, "ada@example.com", result.CustomerEmail)
	require.True(t, result.Validated)

	var row models.Activation
	require.NoError(t, db.First(&row, "id = ?", bound.ActivationID).Error)
	require.NotNil(t, row.LastValidatedAt)
}

func TestValidateRevokedLicenseReturnsStatusOnly(t *testing.T) {
	db := newTestDB(t)
	license := seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)
	svc := newTestService(t, db)
	ctx := context.Background()

	bound, err := svc.Activate(ctx, ActivateInput{Key: "MBPRO-AAAA-AAAA-AAAA-AAAA", Fingerprint: "f1"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.License{}).
		Where("id = ?", license.ID).
		Update("status", enums.LicenseStatusRevoked).Error)

	result, err := svc.Validate(ctx, "MBPRO-AAAA-AAAA-AAAA-AAAA", bound.ActivationID)
	require.NoError(t, err)
	require.Equal(t, enums.LicenseStatusRevoked, result.Status)
	require.Empty(t, result.CustomerName)
	require.Empty(t, result.CustomerEmail)
	require.False(t, result.Validated)

	var row models.Activation
	require.NoError(t, db.First(&row, "id = ?", bound.ActivationID).Error)
	require.Nil(t, row.LastValidatedAt)
}

func TestValidateMissingBindingIsNotFound(t *testing.T) {
	db := newTestDB(t)
	seedLicense(t, db, enums.LicenseTierPersonal, enums.LicenseStatusActive)
	svc := newTestService(t, db)

	_, err := svc.Validate(context.Background(), "MBPRO-AAAA-AAAA-AAAA-AAAA", uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Validate(context.Background(), "MBPRO-ZZZZ-ZZZZ-ZZZZ-ZZZZ", uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}
