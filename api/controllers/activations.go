package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/modbuspro/license-server/api/responses"
	"github.com/modbuspro/license-server/api/validators"
	"github.com/modbuspro/license-server/internal/activations"
	pkgerrors "github.com/modbuspro/license-server/pkg/errors"
	"github.com/modbuspro/license-server/pkg/logger"
)

type activateRequest struct {
	Key   string              `json:"key"`
	Label string              `json:"label"`
	Meta  activateRequestMeta `json:"meta"`
}

type activateRequestMeta struct {
	Fingerprint string `json:"fingerprint"`
	Hostname    string `json:"hostname"`
	Platform    string `json:"platform"`
}

type customerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type activateResponse struct {
	ID         uuid.UUID               `json:"id"`
	LicenseKey activateLicenseResponse `json:"license_key"`
}

type activateLicenseResponse struct {
	Customer customerResponse `json:"customer"`
}

// Activate binds a machine fingerprint to a license slot.
func Activate(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		var payload activateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := keyContext(r.Context(), logg, payload.Key)
		result, err := svc.Activate(ctx, activations.ActivateInput{
			Key:         payload.Key,
			Fingerprint: payload.Meta.Fingerprint,
			Label:       payload.Label,
			Hostname:    payload.Meta.Hostname,
			Platform:    payload.Meta.Platform,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, activateResponse{
			ID: result.ActivationID,
			LicenseKey: activateLicenseResponse{
				Customer: customerResponse{
					Name:  result.CustomerName,
					Email: result.CustomerEmail,
				},
			},
		})
	}
}

type deactivateRequest struct {
	Key          string `json:"key"`
	ActivationID string `json:"activation_id"`
}

// Deactivate releases a machine's slot on the license.
func Deactivate(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		var payload deactivateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activationID, err := parseActivationID(payload.Key, payload.ActivationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := keyContext(r.Context(), logg, payload.Key)
		if err := svc.Deactivate(ctx, payload.Key, activationID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

type validateResponse struct {
	ID       uuid.UUID        `json:"id"`
	Customer customerResponse `json:"customer"`
}

// Validate reports license standing for a bound machine. A revoked or
// refunded license answers 200 with the bare status so clients can degrade
// gracefully.
func Validate(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		var payload deactivateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activationID, err := parseActivationID(payload.Key, payload.ActivationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := keyContext(r.Context(), logg, payload.Key)
		result, err := svc.Validate(ctx, payload.Key, activationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if !result.Validated {
			responses.WriteJSON(w, http.StatusOK, map[string]string{"status": string(result.Status)})
			return
		}

		responses.WriteJSON(w, http.StatusOK, validateResponse{
			ID: result.LicenseID,
			Customer: customerResponse{
				Name:  result.CustomerName,
				Email: result.CustomerEmail,
			},
		})
	}
}

func keyContext(ctx context.Context, logg *logger.Logger, key string) context.Context {
	if logg == nil {
		return ctx
	}
	return logg.WithLicenseKey(ctx, key)
}

func parseActivationID(key, raw string) (uuid.UUID, error) {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(raw) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "Missing required fields: key, activation_id")
	}
	activationID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid activation_id")
	}
	return activationID, nil
}
