package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMetadataForMapsSpecStatuses(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, MetadataFor(CodeValidation).HTTPStatus)
	require.Equal(t, http.StatusBadRequest, MetadataFor(CodeInvalidSignature).HTTPStatus)
	require.Equal(t, http.StatusNotFound, MetadataFor(CodeNotFound).HTTPStatus)
	require.Equal(t, http.StatusForbidden, MetadataFor(CodeForbidden).HTTPStatus)
	require.Equal(t, http.StatusInternalServerError, MetadataFor(CodeDependency).HTTPStatus)
	require.Equal(t, http.StatusInternalServerError, MetadataFor(Code("bogus")).HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("db down")
	err := Wrap(CodeDependency, cause, "lookup license")

	require.Equal(t, CodeDependency, err.Code())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "DEPENDENCY_ERROR: lookup license", err.Error())
}

func TestAsUnwrapsNestedTypedError(t *testing.T) {
	inner := New(CodeForbidden, "quota exceeded")
	wrapped := fmt.Errorf("handler: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	require.Equal(t, CodeForbidden, typed.Code())

	require.Nil(t, As(fmt.Errorf("plain")))
}

func TestDumpCapturesPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "licenses_license_key_key",
		TableName:      "licenses",
		Detail:         "Key (license_key)=(MBPRO-...) already exists.",
	}
	dump := Dump(Wrap(CodeConflict, pgErr, "insert license"))

	require.Equal(t, "23505", dump.PGCode)
	require.Equal(t, "licenses_license_key_key", dump.PGConstraint)
	require.Equal(t, CodeConflict, dump.Code)
	require.NotEmpty(t, dump.Chain)
}
