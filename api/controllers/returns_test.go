package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stitchfield/stitchfield-backend/api/middleware"
	"github.com/stitchfield/stitchfield-backend/internal/returns"
	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
)

type stubReturnsService struct {
	created     *returns.CreateReturnInput
	ret         *models.ReturnRequest
	list        []models.ReturnRequest
	transitions []returns.TransitionInput
	err         error
}

func (s *stubReturnsService) Create(ctx context.Context, input returns.CreateReturnInput) (*models.ReturnRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &input
	return s.ret, nil
}

func (s *stubReturnsService) Get(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error) {
	if s.ret == nil || s.ret.ID != returnID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
	}
	return s.ret, nil
}

func (s *stubReturnsService) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReturnRequest, error) {
	list := s.list
	if list == nil && s.ret != nil {
		list = []models.ReturnRequest{*s.ret}
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *stubReturnsService) Transition(ctx context.Context, returnID uuid.UUID, input returns.TransitionInput) (*models.ReturnRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.transitions = append(s.transitions, input)
	return s.ret, nil
}

func authedRequest(method, url string, body []byte, userID uuid.UUID, role enums.UserRole, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	if len(params) > 0 {
		rc := chi.NewRouteContext()
		for k, v := range params {
			rc.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func sampleReturn(userID uuid.UUID) *models.ReturnRequest {
	return &models.ReturnRequest{
		ID:      uuid.New(),
		UserID:  userID,
		OrderID: "sess_1",
		Status:  enums.ReturnStatusRequested,
	}
}

func TestReturnCreate(t *testing.T) {
	userID := uuid.New()
	svc := &stubReturnsService{ret: sampleReturn(userID)}
	handler := ReturnCreate(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"order_id": "sess_1",
		"items": []map[string]any{
			{"product_id": uuid.New(), "variant_key": "M/blue", "qty": 1, "reason": "wrong_size"},
		},
	})
	req := authedRequest(http.MethodPost, "/api/v1/returns", body, userID, enums.UserRoleCustomer, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.created == nil || svc.created.UserID != userID {
		t.Fatalf("caller identity must come from the token, got %+v", svc.created)
	}
	if svc.created.OrderID != "sess_1" {
		t.Fatalf("unexpected order id %q", svc.created.OrderID)
	}
}

func TestReturnCreateRejectsUnknownFields(t *testing.T) {
	userID := uuid.New()
	svc := &stubReturnsService{ret: sampleReturn(userID)}
	handler := ReturnCreate(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/returns", []byte(`{"order_id":"sess_1","bogus":true}`), userID, enums.UserRoleCustomer, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestReturnListHonorsLimit(t *testing.T) {
	userID := uuid.New()
	svc := &stubReturnsService{list: []models.ReturnRequest{
		*sampleReturn(userID), *sampleReturn(userID), *sampleReturn(userID),
	}}
	handler := ReturnList(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/returns?limit=2", nil, userID, enums.UserRoleCustomer, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Data []models.ReturnRequest `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(body.Data))
	}
}

func TestReturnListRejectsBadLimit(t *testing.T) {
	userID := uuid.New()
	svc := &stubReturnsService{}
	handler := ReturnList(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/returns?limit=0", nil, userID, enums.UserRoleCustomer, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestReturnDetailHidesOtherUsersReturns(t *testing.T) {
	owner := uuid.New()
	svc := &stubReturnsService{ret: sampleReturn(owner)}
	handler := ReturnDetail(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/returns/"+svc.ret.ID.String(), nil,
		uuid.New(), enums.UserRoleCustomer, map[string]string{"returnId": svc.ret.ID.String()})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a non-owner, got %d", w.Code)
	}
}

func TestReturnDetailStaffSeesAny(t *testing.T) {
	owner := uuid.New()
	svc := &stubReturnsService{ret: sampleReturn(owner)}
	handler := ReturnDetail(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/returns/"+svc.ret.ID.String(), nil,
		uuid.New(), enums.UserRoleSupport, map[string]string{"returnId": svc.ret.ID.String()})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff, got %d", w.Code)
	}
}

func TestReturnTransitionRequiresStaffForApproval(t *testing.T) {
	owner := uuid.New()
	svc := &stubReturnsService{ret: sampleReturn(owner)}
	handler := ReturnTransition(svc, nil)

	body := []byte(`{"target":"approved"}`)
	req := authedRequest(http.MethodPost, "/api/v1/returns/"+svc.ret.ID.String()+"/transition", body,
		owner, enums.UserRoleCustomer, map[string]string{"returnId": svc.ret.ID.String()})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if len(svc.transitions) != 0 {
		t.Fatal("transition must not reach the service")
	}
}

func TestReturnTransitionOwnerMayCancel(t *testing.T) {
	owner := uuid.New()
	svc := &stubReturnsService{ret: sampleReturn(owner)}
	handler := ReturnTransition(svc, nil)

	body := []byte(`{"target":"cancelled"}`)
	req := authedRequest(http.MethodPost, "/api/v1/returns/"+svc.ret.ID.String()+"/transition", body,
		owner, enums.UserRoleCustomer, map[string]string{"returnId": svc.ret.ID.String()})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.transitions) != 1 || svc.transitions[0].Target != enums.ReturnStatusCancelled {
		t.Fatalf("expected cancel transition, got %+v", svc.transitions)
	}
}

func TestReturnTransitionStaffMayApprove(t *testing.T) {
	owner := uuid.New()
	svc := &stubReturnsService{ret: sampleReturn(owner)}
	handler := ReturnTransition(svc, nil)

	body := []byte(`{"target":"approved"}`)
	req := authedRequest(http.MethodPost, "/api/v1/returns/"+svc.ret.ID.String()+"/transition", body,
		uuid.New(), enums.UserRoleSupport, map[string]string{"returnId": svc.ret.ID.String()})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.transitions) != 1 || svc.transitions[0].Target != enums.ReturnStatusApproved {
		t.Fatalf("expected approve transition, got %+v", svc.transitions)
	}
}

func TestReturnTransitionRejectsBadReturnID(t *testing.T) {
	svc := &stubReturnsService{}
	handler := ReturnTransition(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/returns/not-a-uuid/transition", []byte(`{"target":"approved"}`),
		uuid.New(), enums.UserRoleSupport, map[string]string{"returnId": "not-a-uuid"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
