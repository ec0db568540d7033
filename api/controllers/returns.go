package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stitchfield/stitchfield-backend/api/middleware"
	"github.com/stitchfield/stitchfield-backend/api/responses"
	"github.com/stitchfield/stitchfield-backend/api/validators"
	"github.com/stitchfield/stitchfield-backend/internal/returns"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
)

type createReturnRequest struct {
	OrderID string                    `json:"order_id" validate:"required"`
	Items   []createReturnItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createReturnItemRequest struct {
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	VariantKey string    `json:"variant_key" validate:"required"`
	Qty        int       `json:"qty" validate:"required,gt=0"`
	Reason     string    `json:"reason" validate:"required"`
}

type transitionReturnRequest struct {
	Target         string  `json:"target" validate:"required"`
	LabelRef       *string `json:"label_ref,omitempty"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
}

// ReturnCreate opens a return request for one of the caller's orders.
func ReturnCreate(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]returns.ReturnItemInput, len(body.Items))
		for i, item := range body.Items {
			items[i] = returns.ReturnItemInput{
				ProductID:  item.ProductID,
				VariantKey: item.VariantKey,
				Qty:        item.Qty,
				Reason:     enums.ReturnReason(item.Reason),
			}
		}

		created, err := svc.Create(r.Context(), returns.CreateReturnInput{
			UserID:  userID,
			OrderID: body.OrderID,
			Items:   items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ReturnList returns the caller's return requests, newest first.
func ReturnList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByUser(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ReturnDetail returns a single return request. Customers only see their
// own; staff can inspect any.
func ReturnDetail(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		returnID, err := parseReturnID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Get(r.Context(), returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := enums.UserRole(middleware.RoleFromContext(r.Context()))
		if !role.IsStaff() && ret.UserID.String() != middleware.UserIDFromContext(r.Context()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found"))
			return
		}

		responses.WriteSuccess(w, ret)
	}
}

// ReturnTransition advances the return workflow. Staff drive the fulfilment
// edges; a customer may only cancel their own request.
func ReturnTransition(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		returnID, err := parseReturnID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target := enums.ReturnStatus(body.Target)

		role := enums.UserRole(middleware.RoleFromContext(r.Context()))
		if !role.IsStaff() {
			if target != enums.ReturnStatusCancelled {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required"))
				return
			}
			ret, err := svc.Get(r.Context(), returnID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if ret.UserID.String() != middleware.UserIDFromContext(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found"))
				return
			}
		}

		updated, err := svc.Transition(r.Context(), returnID, returns.TransitionInput{
			Target:         target,
			LabelRef:       body.LabelRef,
			TrackingNumber: body.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return userID, nil
}

func parseReturnID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "returnId")
	returnID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "return id must be a uuid")
	}
	return returnID, nil
}
