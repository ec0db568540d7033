package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stitchfield/stitchfield-backend/api/middleware"
	"github.com/stitchfield/stitchfield-backend/api/responses"
	internalorders "github.com/stitchfield/stitchfield-backend/internal/orders"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
)

// OrderDetail returns the materialized order for a checkout session.
// Customers only see their own orders; staff can inspect any.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required"))
			return
		}

		order, err := svc.GetBySessionID(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := enums.UserRole(middleware.RoleFromContext(r.Context()))
		if !role.IsStaff() {
			userID := middleware.UserIDFromContext(r.Context())
			if order.UserID == nil || order.UserID.String() != userID {
				// Hide the order's existence from non-owners.
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
		}

		responses.WriteSuccess(w, order)
	}
}
