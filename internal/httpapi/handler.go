package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/models"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/payment"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/store"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/token"
)

type Handler struct {
	store    store.Store
	payments *payment.Client
	gate     *AuthGate
	secrets  Secrets
	adminTTL time.Duration
	custTTL  time.Duration
}

type Options struct {
	Secrets  Secrets
	AdminTTL time.Duration
	CustTTL  time.Duration
	Payments *payment.Client
}

func NewHandler(st store.Store, gate *AuthGate, options Options) *Handler {
	adminTTL := options.AdminTTL
	if adminTTL <= 0 {
		adminTTL = 12 * time.Hour
	}
	custTTL := options.CustTTL
	if custTTL <= 0 {
		custTTL = 3 * time.Hour
	}
	return &Handler{
		store:    st,
		payments: options.Payments,
		gate:     gate,
		secrets:  options.Secrets,
		adminTTL: adminTTL,
		custTTL:  custTTL,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())

	mux.HandleFunc("/api/auth/login-admin", h.handleAdminLogin)
	mux.HandleFunc("/api/auth/super-login", h.handleSuperLogin)
	mux.HandleFunc("/api/auth/login-cust", h.handleCustLogin)
	mux.HandleFunc("/api/auth/verify", h.handleVerify)

	mux.HandleFunc("/api/orders", h.handleOrders)
	mux.HandleFunc("/api/orders/", h.handleOrderActions)
	mux.HandleFunc("/api/call", h.handleCreateCall)
	mux.HandleFunc("/api/calls", h.handleListCalls)
	mux.HandleFunc("/api/calls/", h.handleCallActions)

	mux.HandleFunc("/api/menus", h.handleMenus)
	mux.HandleFunc("/api/menus/", h.handleMenuActions)
	mux.HandleFunc("/api/qrcodes", h.handleQrCodes)
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/payment-code", h.handlePaymentCode)
	mux.HandleFunc("/api/payments/confirm", h.handlePaymentConfirm)

	mux.HandleFunc("/api/stores", h.handleStores)
	mux.HandleFunc("/api/stores/", h.handleStoreActions)
	mux.HandleFunc("/api/admins", h.handleAdmins)
	mux.HandleFunc("/api/admins/", h.handleAdminActions)
	mux.HandleFunc("/api/mappings", h.handleMappings)
	mux.HandleFunc("/api/mappings/", h.handleMappingActions)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// --- auth ---

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"pw"`
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "id and pw are required")
		return
	}

	admin, err := h.store.AuthenticateAdmin(r.Context(), req.ID, req.Password)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	// An admin without a store mapping has nowhere to log into.
	storeID, err := h.store.ResolveAdminStore(r.Context(), admin.AdminID)
	if err != nil {
		if errors.Is(err, store.ErrMappingNotFound) {
			writeError(w, http.StatusForbidden, "auth_forbidden", "admin has no store mapping")
			return
		}
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	signed, err := token.Issue(token.Claims{
		Realm:   token.RealmAdmin,
		Subject: admin.AdminID,
		StoreID: storeID,
		Name:    admin.Name,
	}, h.secrets.JWT, h.adminTTL)
	if err != nil {
		log.Printf("handler=login-admin err=%v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	setRealmCookie(w, adminCookie, signed, h.adminTTL)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    signed,
		"store_id": storeID,
		"name":     admin.Name,
	})
}

func (h *Handler) handleSuperLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "id and pw are required")
		return
	}

	if err := h.store.AuthenticateSuper(r.Context(), req.ID, req.Password); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	signed, err := token.Issue(token.Claims{
		Realm:   token.RealmSuper,
		Subject: req.ID,
	}, h.secrets.SuperJWT, h.adminTTL)
	if err != nil {
		log.Printf("handler=super-login err=%v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	setRealmCookie(w, superCookie, signed, h.adminTTL)
	writeJSON(w, http.StatusOK, map[string]any{"token": signed})
}

func (h *Handler) handleCustLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		StoreID string `json:"store_id"`
		TableNo string `json:"table_no"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	req.StoreID = strings.TrimSpace(req.StoreID)
	req.TableNo = strings.TrimSpace(req.TableNo)
	if req.StoreID == "" || req.TableNo == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "store_id and table_no are required")
		return
	}

	if _, err := h.store.GetStore(r.Context(), req.StoreID); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	signed, err := token.Issue(token.Claims{
		Realm:   token.RealmCust,
		Subject: req.StoreID + "/" + req.TableNo,
		StoreID: req.StoreID,
		Name:    req.TableNo,
	}, h.secrets.JWT, h.custTTL)
	if err != nil {
		log.Printf("handler=login-cust err=%v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	setRealmCookie(w, custCookie, signed, h.custTTL)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    signed,
		"store_id": req.StoreID,
		"table_no": req.TableNo,
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	auth, ok := authFromContext(r.Context())
	if !ok {
		// Reached only when the routes are mounted without the gate
		// middleware; resolve the token directly in that case.
		resolved, found, valid := h.gate.Resolve(r)
		if !found {
			writeError(w, http.StatusUnauthorized, "auth_missing", "no token presented")
			return
		}
		if !valid {
			writeError(w, http.StatusUnauthorized, "auth_invalid", "token signature or expiry check failed")
			return
		}
		auth = resolved
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"realm":    auth.Realm,
		"subject":  auth.Subject,
		"store_id": auth.StoreID,
		"name":     auth.Name,
	})
}

// --- orders ---

type createOrderRequest struct {
	StoreID     string               `json:"store_id"`
	Type        string               `json:"type"`
	TableNo     string               `json:"table_no"`
	Amount      json.RawMessage      `json:"amount"`
	Items       []models.CartItem    `json:"items"`
	Customer    *models.CustomerInfo `json:"customer"`
	ReserveDate string               `json:"reserve_date"`
	ReserveTime string               `json:"reserve_time"`
	Memo        string               `json:"memo"`
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListOrders(w, r)
	case http.MethodPost:
		h.handleCreateOrder(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}
	orderType := strings.TrimSpace(r.URL.Query().Get("type"))
	if orderType != "" && !validOrderType(orderType) {
		writeError(w, http.StatusBadRequest, "validation_error", "type must be store, delivery, or reserve")
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := h.store.ListOrders(r.Context(), storeID, orderType, limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "auth_missing", "no token presented")
		return
	}

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.StoreID = strings.TrimSpace(req.StoreID)
	req.Type = strings.TrimSpace(req.Type)
	req.TableNo = strings.TrimSpace(req.TableNo)

	// A cust token is bound to one store; a body naming another store is
	// refused, never redirected.
	if req.StoreID != "" && req.StoreID != auth.StoreID {
		writeError(w, http.StatusForbidden, "auth_forbidden", "store mismatch")
		return
	}
	storeID := auth.StoreID
	if storeID == "" {
		writeError(w, http.StatusForbidden, "auth_forbidden", "token is not bound to a store")
		return
	}

	if req.Type == "" {
		req.Type = models.TypeStore
	}
	if !validOrderType(req.Type) {
		writeError(w, http.StatusBadRequest, "validation_error", "type must be store, delivery, or reserve")
		return
	}
	if req.Type == models.TypeStore && req.TableNo == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "table_no is required for store orders")
		return
	}
	if req.Type == models.TypeReserve && (req.ReserveDate == "" || req.ReserveTime == "") {
		writeError(w, http.StatusBadRequest, "validation_error", "reserve_date and reserve_time are required for reservations")
		return
	}

	amount, err := coerceAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "amount must be a non-negative integer")
		return
	}

	order, err := h.store.CreateOrder(r.Context(), store.CreateOrderInput{
		StoreID: storeID,
		Type:    req.Type,
		TableNo: req.TableNo,
		Amount:  amount,
		Meta: models.OrderMeta{
			Items:       req.Items,
			Customer:    req.Customer,
			ReserveDate: req.ReserveDate,
			ReserveTime: req.ReserveTime,
			Memo:        req.Memo,
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleOrderActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/orders/"), "/"), "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	orderID, action := parts[0], parts[1]

	switch action {
	case "status":
		h.handleOrderStatus(w, r, orderID)
	case "meta":
		h.handleOrderMeta(w, r, orderID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleOrderStatus(w http.ResponseWriter, r *http.Request, orderID string) {
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "status is required")
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), storeID, orderID, req.Status, time.Now().UTC())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleOrderMeta(w http.ResponseWriter, r *http.Request, orderID string) {
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}
	var req map[string]interface{}
	if !decodeBody(w, r, &req) {
		return
	}

	// Only known meta keys pass through; keys the patch names override
	// the stored values even when empty, so a memo can be cleared.
	patch := map[string]interface{}{}
	for _, key := range []string{"items", "customer", "reserve_date", "reserve_time", "memo"} {
		if value, ok := req[key]; ok {
			patch[key] = value
		}
	}
	if len(patch) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "empty meta patch")
		return
	}

	order, err := h.store.MergeOrderMeta(r.Context(), storeID, orderID, patch)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// --- staff calls ---

func (h *Handler) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		StoreID string `json:"store_id"`
		TableNo string `json:"table_no"`
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	req.StoreID = strings.TrimSpace(req.StoreID)
	req.TableNo = strings.TrimSpace(req.TableNo)
	if req.StoreID == "" || req.TableNo == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "store_id and table_no are required")
		return
	}

	if _, err := h.store.GetStore(r.Context(), req.StoreID); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	call, err := h.store.CreateCall(r.Context(), store.CreateCallInput{
		StoreID:   req.StoreID,
		TableNo:   req.TableNo,
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (h *Handler) handleListCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && status != models.CallPending && status != models.CallAcknowledged {
		writeError(w, http.StatusBadRequest, "validation_error", "status must be pending or acknowledged")
		return
	}

	calls, err := h.store.ListCalls(r.Context(), storeID, status)
	if err != nil {
		statusCode, code, msg := mapError(err)
		writeError(w, statusCode, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *Handler) handleCallActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/calls/"), "/"), "/")
	if len(parts) != 2 || parts[1] != "ack" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}

	call, err := h.store.AcknowledgeCall(r.Context(), storeID, parts[0])
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// --- menus ---

type menuRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
	SoldOut  bool   `json:"sold_out"`
}

func (h *Handler) handleMenus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Public browse: customers scan a QR and read the menu before any
		// login, so the store comes from the query string.
		storeID := strings.TrimSpace(r.URL.Query().Get("store_id"))
		if storeID == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "store_id is required")
			return
		}
		menus, err := h.store.ListMenus(r.Context(), storeID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, menus)
	case http.MethodPost:
		storeID, ok := storeScope(w, r)
		if !ok {
			return
		}
		var req menuRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.Price < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "name is required and price must be non-negative")
			return
		}
		menu, err := h.store.CreateMenu(r.Context(), storeID, store.MenuInput{
			Name:     req.Name,
			Price:    req.Price,
			Category: strings.TrimSpace(req.Category),
			SoldOut:  req.SoldOut,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, menu)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleMenuActions(w http.ResponseWriter, r *http.Request) {
	menuID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/menus/"), "/")
	if menuID == "" || strings.Contains(menuID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req menuRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.Price < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "name is required and price must be non-negative")
			return
		}
		menu, err := h.store.UpdateMenu(r.Context(), storeID, menuID, store.MenuInput{
			Name:     req.Name,
			Price:    req.Price,
			Category: strings.TrimSpace(req.Category),
			SoldOut:  req.SoldOut,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, menu)
	case http.MethodDelete:
		if err := h.store.DeleteMenu(r.Context(), storeID, menuID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- qr codes, settings, payment code ---

func (h *Handler) handleQrCodes(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		codes, err := h.store.ListQrCodes(r.Context(), storeID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, codes)
	case http.MethodPost:
		var req struct {
			TableNo string `json:"table_no"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		req.TableNo = strings.TrimSpace(req.TableNo)
		if req.TableNo == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "table_no is required")
			return
		}
		code, err := h.store.CreateQrCode(r.Context(), storeID, req.TableNo)
		if err != nil {
			status, errCode, msg := mapError(err)
			writeError(w, status, errCode, msg)
			return
		}
		writeJSON(w, http.StatusOK, code)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		settings, err := h.store.GetSettings(r.Context(), storeID)
		if errors.Is(err, store.ErrSettingsNotFound) {
			// A store that never saved settings gets the defaults.
			settings = models.StoreSettings{StoreID: storeID, AlarmEnabled: true}
			err = nil
		}
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req struct {
			AlarmEnabled  bool   `json:"alarm_enabled"`
			OpenHours     string `json:"open_hours"`
			NoticeText    string `json:"notice_text"`
			PrivacyPolicy string `json:"privacy_policy"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		settings, err := h.store.UpsertSettings(r.Context(), models.StoreSettings{
			StoreID:       storeID,
			AlarmEnabled:  req.AlarmEnabled,
			OpenHours:     req.OpenHours,
			NoticeText:    req.NoticeText,
			PrivacyPolicy: req.PrivacyPolicy,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePaymentCode(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		code, err := h.store.GetPaymentCode(r.Context(), storeID)
		if errors.Is(err, store.ErrSettingsNotFound) {
			code, err = h.store.RotatePaymentCode(r.Context(), storeID)
		}
		if err != nil {
			status, errCode, msg := mapError(err)
			writeError(w, status, errCode, msg)
			return
		}
		writeJSON(w, http.StatusOK, code)
	case http.MethodPost:
		code, err := h.store.RotatePaymentCode(r.Context(), storeID)
		if err != nil {
			status, errCode, msg := mapError(err)
			writeError(w, status, errCode, msg)
			return
		}
		writeJSON(w, http.StatusOK, code)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- payment confirm ---

func (h *Handler) handlePaymentConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	storeID, ok := storeScope(w, r)
	if !ok {
		return
	}
	if h.payments == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "payment provider not configured")
		return
	}
	var req struct {
		PaymentKey string          `json:"paymentKey"`
		OrderID    string          `json:"orderId"`
		Amount     json.RawMessage `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	req.PaymentKey = strings.TrimSpace(req.PaymentKey)
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.PaymentKey == "" || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "paymentKey and orderId are required")
		return
	}
	amount, err := coerceAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "amount must be a non-negative integer")
		return
	}

	order, err := h.store.GetOrder(r.Context(), storeID, req.OrderID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	result, err := h.payments.Confirm(r.Context(), payment.ConfirmInput{
		PaymentKey: req.PaymentKey,
		OrderID:    req.OrderID,
		Amount:     amount,
	})
	if err != nil {
		// The provider's own verdict passes through untouched; anything
		// else (network, timeout) stays generic.
		var provErr *payment.ProviderError
		if errors.As(err, &provErr) {
			log.Printf("handler=payment-confirm order_id=%s provider_status=%d provider_code=%s", req.OrderID, provErr.StatusCode, provErr.Code)
			writeError(w, provErr.StatusCode, provErr.Code, provErr.Message)
			return
		}
		log.Printf("handler=payment-confirm order_id=%s err=%v", req.OrderID, err)
		writeError(w, http.StatusInternalServerError, "upstream_failure", "payment provider unreachable")
		return
	}

	// A confirmed payment moves a reservation out of its unpaid state.
	if order.Type == models.TypeReserve && order.Status == models.StatusUnpaid {
		order, err = h.store.UpdateOrderStatus(r.Context(), storeID, req.OrderID, models.StatusReceived, time.Now().UTC())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payment": result,
		"order":   order,
	})
}

// --- super console: stores ---

type storeRequest struct {
	StoreID string `json:"store_id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	QrLimit int    `json:"qr_limit"`
}

func (h *Handler) handleStores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		stores, err := h.store.ListStores(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, stores)
	case http.MethodPost:
		var req storeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.StoreID = strings.TrimSpace(req.StoreID)
		req.Name = strings.TrimSpace(req.Name)
		req.Code = strings.TrimSpace(req.Code)
		if req.StoreID == "" || req.Name == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "store_id and name are required")
			return
		}
		if req.QrLimit <= 0 {
			req.QrLimit = 10
		}
		created, err := h.store.CreateStore(r.Context(), store.CreateStoreInput{
			StoreID: req.StoreID,
			Name:    req.Name,
			Code:    req.Code,
			QrLimit: req.QrLimit,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleStoreActions(w http.ResponseWriter, r *http.Request) {
	storeID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stores/"), "/")
	if storeID == "" || strings.Contains(storeID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req storeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Code = strings.TrimSpace(req.Code)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "name is required")
			return
		}
		if req.QrLimit <= 0 {
			req.QrLimit = 10
		}
		updated, err := h.store.UpdateStore(r.Context(), storeID, store.UpdateStoreInput{
			Name:    req.Name,
			Code:    req.Code,
			QrLimit: req.QrLimit,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.store.DeleteStore(r.Context(), storeID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- super console: admins ---

func (h *Handler) handleAdmins(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		admins, err := h.store.ListAdmins(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, admins)
	case http.MethodPost:
		var req struct {
			AdminID  string `json:"admin_id"`
			Password string `json:"password"`
			Name     string `json:"name"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		req.AdminID = strings.TrimSpace(req.AdminID)
		req.Name = strings.TrimSpace(req.Name)
		if req.AdminID == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "admin_id and password are required")
			return
		}
		admin, err := h.store.CreateAdmin(r.Context(), store.CreateAdminInput{
			AdminID:  req.AdminID,
			Password: req.Password,
			Name:     req.Name,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, admin)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAdminActions(w http.ResponseWriter, r *http.Request) {
	adminID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admins/"), "/")
	if adminID == "" || strings.Contains(adminID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.store.DeleteAdmin(r.Context(), adminID); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- super console: mappings ---

func (h *Handler) handleMappings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		adminID := strings.TrimSpace(r.URL.Query().Get("admin_id"))
		mappings, err := h.store.ListMappings(r.Context(), adminID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, mappings)
	case http.MethodPost:
		var req struct {
			AdminID   string `json:"admin_id"`
			StoreID   string `json:"store_id"`
			IsDefault bool   `json:"is_default"`
			Note      string `json:"note"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		req.AdminID = strings.TrimSpace(req.AdminID)
		req.StoreID = strings.TrimSpace(req.StoreID)
		if req.AdminID == "" || req.StoreID == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "admin_id and store_id are required")
			return
		}
		mapping, err := h.store.CreateMapping(r.Context(), store.CreateMappingInput{
			AdminID:   req.AdminID,
			StoreID:   req.StoreID,
			IsDefault: req.IsDefault,
			Note:      strings.TrimSpace(req.Note),
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, mapping)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleMappingActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/mappings/"), "/"), "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.store.DeleteMapping(r.Context(), parts[0], parts[1]); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func validOrderType(orderType string) bool {
	return orderType == models.TypeStore || orderType == models.TypeDelivery || orderType == models.TypeReserve
}

// coerceAmount accepts an integer amount as either a JSON number or a
// numeric string; table tablets post it as a string.
func coerceAmount(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("amount is required")
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if asNumber < 0 {
			return 0, fmt.Errorf("amount must be non-negative")
		}
		return asNumber, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, fmt.Errorf("amount must be a number or numeric string")
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(asString), 10, 64)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("amount must be a non-negative integer")
	}
	return parsed, nil
}

func setRealmCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	// Unknown fields are tolerated: legacy clients attach the token as a
	// body field on otherwise ordinary payloads.
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "id or password is wrong"
	case errors.Is(err, store.ErrStoreNotFound):
		return http.StatusNotFound, "store_not_found", "store not found"
	case errors.Is(err, store.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found", "order not found"
	case errors.Is(err, store.ErrCallNotFound):
		return http.StatusNotFound, "call_not_found", "call not found"
	case errors.Is(err, store.ErrAdminNotFound):
		return http.StatusNotFound, "admin_not_found", "admin not found"
	case errors.Is(err, store.ErrMenuNotFound):
		return http.StatusNotFound, "menu_not_found", "menu not found"
	case errors.Is(err, store.ErrMappingNotFound):
		return http.StatusNotFound, "mapping_not_found", "mapping not found"
	case errors.Is(err, store.ErrSettingsNotFound):
		return http.StatusNotFound, "settings_not_found", "settings not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "order state does not allow this transition"
	case errors.Is(err, store.ErrMappingExists):
		return http.StatusConflict, "mapping_exists", "admin still has store mappings"
	case errors.Is(err, store.ErrQrLimitReached):
		return http.StatusConflict, "qr_limit_reached", "store QR code limit reached"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "conflict", "resource already exists"
	default:
		// Storage error text stays in the log, never in the response.
		log.Printf("storage error: %v", err)
		return http.StatusInternalServerError, "upstream_failure", "upstream failure"
	}
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
