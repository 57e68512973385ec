package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/models"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/payment"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/store"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/token"
)

type fakeStore struct {
	authenticateAdminFn func(ctx context.Context, adminID, password string) (models.Admin, error)
	resolveAdminStoreFn func(ctx context.Context, adminID string) (string, error)
	createOrderFn       func(ctx context.Context, input store.CreateOrderInput) (models.Order, error)
	getOrderFn          func(ctx context.Context, storeID, orderID string) (models.Order, error)
	listOrdersFn        func(ctx context.Context, storeID, orderType string, limit int) ([]models.Order, error)
	updateOrderStatusFn func(ctx context.Context, storeID, orderID, status string, at time.Time) (models.Order, error)
	mergeOrderMetaFn    func(ctx context.Context, storeID, orderID string, patch map[string]interface{}) (models.Order, error)
	deleteAdminFn       func(ctx context.Context, adminID string) error
	createQrCodeFn      func(ctx context.Context, storeID, tableNo string) (models.QrCode, error)
	getStoreFn          func(ctx context.Context, storeID string) (models.Store, error)
}

func (f fakeStore) AuthenticateAdmin(ctx context.Context, adminID, password string) (models.Admin, error) {
	if f.authenticateAdminFn == nil {
		return models.Admin{}, store.ErrInvalidCredentials
	}
	return f.authenticateAdminFn(ctx, adminID, password)
}

func (f fakeStore) AuthenticateSuper(ctx context.Context, uid, password string) error {
	return store.ErrInvalidCredentials
}

func (f fakeStore) ResolveAdminStore(ctx context.Context, adminID string) (string, error) {
	if f.resolveAdminStoreFn == nil {
		return "", store.ErrMappingNotFound
	}
	return f.resolveAdminStoreFn(ctx, adminID)
}

func (f fakeStore) CreateStore(ctx context.Context, input store.CreateStoreInput) (models.Store, error) {
	return models.Store{StoreID: input.StoreID, Name: input.Name}, nil
}

func (f fakeStore) GetStore(ctx context.Context, storeID string) (models.Store, error) {
	if f.getStoreFn == nil {
		return models.Store{StoreID: storeID}, nil
	}
	return f.getStoreFn(ctx, storeID)
}

func (f fakeStore) ListStores(ctx context.Context) ([]models.Store, error) { return nil, nil }

func (f fakeStore) UpdateStore(ctx context.Context, storeID string, input store.UpdateStoreInput) (models.Store, error) {
	return models.Store{StoreID: storeID, Name: input.Name}, nil
}

func (f fakeStore) DeleteStore(ctx context.Context, storeID string) error { return nil }

func (f fakeStore) CreateAdmin(ctx context.Context, input store.CreateAdminInput) (models.Admin, error) {
	return models.Admin{AdminID: input.AdminID, Name: input.Name}, nil
}

func (f fakeStore) ListAdmins(ctx context.Context) ([]models.Admin, error) { return nil, nil }

func (f fakeStore) DeleteAdmin(ctx context.Context, adminID string) error {
	if f.deleteAdminFn == nil {
		return nil
	}
	return f.deleteAdminFn(ctx, adminID)
}

func (f fakeStore) CreateMapping(ctx context.Context, input store.CreateMappingInput) (models.AdminStoreMapping, error) {
	return models.AdminStoreMapping{AdminID: input.AdminID, StoreID: input.StoreID}, nil
}

func (f fakeStore) ListMappings(ctx context.Context, adminID string) ([]models.AdminStoreMapping, error) {
	return nil, nil
}

func (f fakeStore) DeleteMapping(ctx context.Context, adminID, storeID string) error { return nil }

func (f fakeStore) CreateOrder(ctx context.Context, input store.CreateOrderInput) (models.Order, error) {
	if f.createOrderFn == nil {
		return models.Order{OrderID: "order-1", StoreID: input.StoreID, Type: input.Type, Amount: input.Amount}, nil
	}
	return f.createOrderFn(ctx, input)
}

func (f fakeStore) GetOrder(ctx context.Context, storeID, orderID string) (models.Order, error) {
	if f.getOrderFn == nil {
		return models.Order{}, store.ErrOrderNotFound
	}
	return f.getOrderFn(ctx, storeID, orderID)
}

func (f fakeStore) ListOrders(ctx context.Context, storeID, orderType string, limit int) ([]models.Order, error) {
	if f.listOrdersFn == nil {
		return nil, nil
	}
	return f.listOrdersFn(ctx, storeID, orderType, limit)
}

func (f fakeStore) UpdateOrderStatus(ctx context.Context, storeID, orderID, status string, at time.Time) (models.Order, error) {
	if f.updateOrderStatusFn == nil {
		return models.Order{}, store.ErrOrderNotFound
	}
	return f.updateOrderStatusFn(ctx, storeID, orderID, status, at)
}

func (f fakeStore) MergeOrderMeta(ctx context.Context, storeID, orderID string, patch map[string]interface{}) (models.Order, error) {
	if f.mergeOrderMetaFn == nil {
		return models.Order{OrderID: orderID, StoreID: storeID}, nil
	}
	return f.mergeOrderMetaFn(ctx, storeID, orderID, patch)
}

func (f fakeStore) CreateCall(ctx context.Context, input store.CreateCallInput) (models.CallLog, error) {
	return models.CallLog{CallID: "call-1", StoreID: input.StoreID, TableNo: input.TableNo, Status: models.CallPending}, nil
}

func (f fakeStore) ListCalls(ctx context.Context, storeID, status string) ([]models.CallLog, error) {
	return nil, nil
}

func (f fakeStore) AcknowledgeCall(ctx context.Context, storeID, callID string) (models.CallLog, error) {
	return models.CallLog{CallID: callID, StoreID: storeID, Status: models.CallAcknowledged}, nil
}

func (f fakeStore) CreateMenu(ctx context.Context, storeID string, input store.MenuInput) (models.Menu, error) {
	return models.Menu{MenuID: "menu-1", StoreID: storeID, Name: input.Name, Price: input.Price}, nil
}

func (f fakeStore) ListMenus(ctx context.Context, storeID string) ([]models.Menu, error) {
	return nil, nil
}

func (f fakeStore) UpdateMenu(ctx context.Context, storeID, menuID string, input store.MenuInput) (models.Menu, error) {
	return models.Menu{MenuID: menuID, StoreID: storeID, Name: input.Name}, nil
}

func (f fakeStore) DeleteMenu(ctx context.Context, storeID, menuID string) error { return nil }

func (f fakeStore) ListQrCodes(ctx context.Context, storeID string) ([]models.QrCode, error) {
	return nil, nil
}

func (f fakeStore) CreateQrCode(ctx context.Context, storeID, tableNo string) (models.QrCode, error) {
	if f.createQrCodeFn == nil {
		return models.QrCode{QrID: "qr-1", StoreID: storeID, TableNo: tableNo}, nil
	}
	return f.createQrCodeFn(ctx, storeID, tableNo)
}

func (f fakeStore) GetSettings(ctx context.Context, storeID string) (models.StoreSettings, error) {
	return models.StoreSettings{}, store.ErrSettingsNotFound
}

func (f fakeStore) UpsertSettings(ctx context.Context, settings models.StoreSettings) (models.StoreSettings, error) {
	return settings, nil
}

func (f fakeStore) GetPaymentCode(ctx context.Context, storeID string) (models.PaymentCode, error) {
	return models.PaymentCode{}, store.ErrSettingsNotFound
}

func (f fakeStore) RotatePaymentCode(ctx context.Context, storeID string) (models.PaymentCode, error) {
	return models.PaymentCode{StoreID: storeID, Code: "12345678"}, nil
}

func (f fakeStore) ListOutboxEvents(ctx context.Context, after store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	return nil, nil
}

func (f fakeStore) GetOffset(ctx context.Context) (store.OutboxOffset, error) {
	return store.OutboxOffset{}, nil
}

func (f fakeStore) UpdateOffset(ctx context.Context, offset store.OutboxOffset) error { return nil }

func (f fakeStore) CleanupOutbox(ctx context.Context, before time.Time) error { return nil }

var testSecrets = Secrets{JWT: "test-secret", SuperJWT: "test-super-secret"}

func newTestServer(st store.Store, payments *payment.Client) http.Handler {
	gate := NewAuthGate(testSecrets)
	handler := NewHandler(st, gate, Options{
		Secrets:  testSecrets,
		AdminTTL: time.Hour,
		CustTTL:  time.Hour,
		Payments: payments,
	})
	return gate.Middleware(handler.Routes())
}

func adminToken(t *testing.T, storeID string) string {
	t.Helper()
	signed, err := token.Issue(token.Claims{Realm: token.RealmAdmin, Subject: "alice", StoreID: storeID}, testSecrets.JWT, time.Hour)
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	return signed
}

func custToken(t *testing.T, storeID string) string {
	t.Helper()
	signed, err := token.Issue(token.Claims{Realm: token.RealmCust, Subject: storeID + "/7", StoreID: storeID}, testSecrets.JWT, time.Hour)
	if err != nil {
		t.Fatalf("issue cust token: %v", err)
	}
	return signed
}

func superToken(t *testing.T) string {
	t.Helper()
	signed, err := token.Issue(token.Claims{Realm: token.RealmSuper, Subject: "root"}, testSecrets.SuperJWT, time.Hour)
	if err != nil {
		t.Fatalf("issue super token: %v", err)
	}
	return signed
}

func TestAdminLoginBindsDefaultStore(t *testing.T) {
	st := fakeStore{
		authenticateAdminFn: func(ctx context.Context, adminID, password string) (models.Admin, error) {
			if adminID != "alice" || password != "secret" {
				return models.Admin{}, store.ErrInvalidCredentials
			}
			return models.Admin{AdminID: "alice", Name: "Alice"}, nil
		},
		resolveAdminStoreFn: func(ctx context.Context, adminID string) (string, error) {
			return "narae", nil
		},
	}
	body, _ := json.Marshal(map[string]string{"id": "alice", "pw": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login-admin", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Token   string `json:"token"`
		StoreID string `json:"store_id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.StoreID != "narae" {
		t.Fatalf("expected store_id narae, got %q", payload.StoreID)
	}
	claims, ok := token.Verify(payload.Token, testSecrets.JWT)
	if !ok {
		t.Fatal("issued token does not verify")
	}
	if claims.StoreID != "narae" || claims.Realm != token.RealmAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}

	cookies := resp.Result().Cookies()
	found := false
	for _, cookie := range cookies {
		if cookie.Name == adminCookie && cookie.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("expected HttpOnly admin_token cookie")
	}
}

func TestAdminLoginWithoutMappingForbidden(t *testing.T) {
	st := fakeStore{
		authenticateAdminFn: func(ctx context.Context, adminID, password string) (models.Admin, error) {
			return models.Admin{AdminID: adminID}, nil
		},
	}
	body, _ := json.Marshal(map[string]string{"id": "bob", "pw": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login-admin", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestListOrdersScopedToTokenStore(t *testing.T) {
	var gotStore string
	st := fakeStore{
		listOrdersFn: func(ctx context.Context, storeID, orderType string, limit int) ([]models.Order, error) {
			gotStore = storeID
			return []models.Order{{OrderID: "o1", StoreID: storeID}}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotStore != "narae" {
		t.Fatalf("expected list scoped to narae, got %q", gotStore)
	}
}

func TestListOrdersStoreMismatchForbidden(t *testing.T) {
	st := fakeStore{}
	req := httptest.NewRequest(http.MethodGet, "/api/orders?store_id=other", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestCreateOrderCoercesStringAmount(t *testing.T) {
	var gotAmount int64
	st := fakeStore{
		createOrderFn: func(ctx context.Context, input store.CreateOrderInput) (models.Order, error) {
			gotAmount = input.Amount
			return models.Order{OrderID: "o1", StoreID: input.StoreID, Amount: input.Amount}, nil
		},
	}
	body := []byte(`{"type":"store","table_no":"7","amount":"1500","items":[{"menu_id":"m1","name":"kimbap","price":1500,"quantity":1}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+custToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotAmount != 1500 {
		t.Fatalf("expected amount 1500, got %d", gotAmount)
	}
}

func TestCreateOrderRejectsNonNumericAmount(t *testing.T) {
	st := fakeStore{}
	body := []byte(`{"type":"store","table_no":"7","amount":"abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+custToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %q", payload.Error.Code)
	}
}

func TestCreateOrderRequiresCustRealm(t *testing.T) {
	st := fakeStore{}
	body := []byte(`{"type":"store","table_no":"7","amount":1500}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestOrderStatusInvalidTransitionConflict(t *testing.T) {
	st := fakeStore{
		updateOrderStatusFn: func(ctx context.Context, storeID, orderID, status string, at time.Time) (models.Order, error) {
			return models.Order{}, store.ErrInvalidState
		},
	}
	body := []byte(`{"status":"준비중"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/o1/status", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "invalid_state" {
		t.Fatalf("expected invalid_state, got %q", payload.Error.Code)
	}
}

func TestOrderMetaPatchKeepsExplicitEmptyValues(t *testing.T) {
	var got map[string]interface{}
	st := fakeStore{
		mergeOrderMetaFn: func(ctx context.Context, storeID, orderID string, patch map[string]interface{}) (models.Order, error) {
			got = patch
			return models.Order{OrderID: orderID, StoreID: storeID}, nil
		},
	}
	body := []byte(`{"memo":"","reserve_time":"18:30","history":[{"status":"주문완료"}],"bogus":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/o1/meta", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	memo, ok := got["memo"]
	if !ok || memo != "" {
		t.Fatalf("expected empty memo key in patch, got %v (present=%v)", memo, ok)
	}
	if got["reserve_time"] != "18:30" {
		t.Fatalf("expected reserve_time in patch, got %v", got["reserve_time"])
	}
	if _, ok := got["history"]; ok {
		t.Fatalf("history must not pass through a meta patch")
	}
	if _, ok := got["bogus"]; ok {
		t.Fatalf("unknown keys must not pass through a meta patch")
	}
}

func TestDeleteAdminWithMappingConflict(t *testing.T) {
	st := fakeStore{
		deleteAdminFn: func(ctx context.Context, adminID string) error {
			return store.ErrMappingExists
		},
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/admins/bob", nil)
	req.Header.Set("Authorization", "Bearer "+superToken(t))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "mapping_exists" {
		t.Fatalf("expected mapping_exists, got %q", payload.Error.Code)
	}
}

func TestSuperRoutesRejectAdminToken(t *testing.T) {
	st := fakeStore{}
	req := httptest.NewRequest(http.MethodGet, "/api/stores", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestStoreScopedRouteWithoutTokenUnauthorized(t *testing.T) {
	st := fakeStore{}
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestQrCodeLimitConflict(t *testing.T) {
	st := fakeStore{
		createQrCodeFn: func(ctx context.Context, storeID, tableNo string) (models.QrCode, error) {
			return models.QrCode{}, store.ErrQrLimitReached
		},
	}
	body := []byte(`{"table_no":"12"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/qrcodes", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestPaymentConfirmGatesReservation(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"DONE","orderId":"o1","approvedAt":"2026-01-01T00:00:00Z"}`))
	}))
	defer provider.Close()

	var gotStatus string
	st := fakeStore{
		getOrderFn: func(ctx context.Context, storeID, orderID string) (models.Order, error) {
			return models.Order{OrderID: orderID, StoreID: storeID, Type: models.TypeReserve, Status: models.StatusUnpaid}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, storeID, orderID, status string, at time.Time) (models.Order, error) {
			gotStatus = status
			return models.Order{OrderID: orderID, StoreID: storeID, Type: models.TypeReserve, Status: status}, nil
		},
	}
	body := []byte(`{"paymentKey":"pay_1","orderId":"o1","amount":30000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/confirm", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, payment.New(provider.URL, "sk_test")).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotStatus != models.StatusReceived {
		t.Fatalf("expected reservation moved to %q, got %q", models.StatusReceived, gotStatus)
	}
}

func TestPaymentConfirmSurfacesProviderError(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_CARD","message":"card declined"}`))
	}))
	defer provider.Close()

	st := fakeStore{
		getOrderFn: func(ctx context.Context, storeID, orderID string) (models.Order, error) {
			return models.Order{OrderID: orderID, StoreID: storeID, Type: models.TypeReserve, Status: models.StatusUnpaid}, nil
		},
	}
	body := []byte(`{"paymentKey":"pay_1","orderId":"o1","amount":30000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/confirm", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, payment.New(provider.URL, "sk_test")).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "INVALID_CARD" || payload.Error.Message != "card declined" {
		t.Fatalf("expected provider error surfaced verbatim, got %+v", payload.Error)
	}
}

func TestSuperStoreScopeRequiresStoreParam(t *testing.T) {
	st := fakeStore{}
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+superToken(t))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestVerifyIntrospection(t *testing.T) {
	st := fakeStore{}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "narae"))
	resp := httptest.NewRecorder()

	newTestServer(st, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var payload struct {
		Realm   string `json:"realm"`
		StoreID string `json:"store_id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Realm != token.RealmAdmin || payload.StoreID != "narae" {
		t.Fatalf("unexpected introspection %+v", payload)
	}
}
