package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/enum"
	"github.com/linkamarket/api/internal/middleware"
)

// ProfileStore defines the read/delete methods needed by the profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (database.Profile, error)
	UpdateProfile(ctx context.Context, arg database.UpdateProfileParams) (database.Profile, error)
	ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]database.UserAddress, error)
	DeleteAddress(ctx context.Context, arg database.DeleteAddressParams) (int64, error)
	ListPaymentMethodsByUser(ctx context.Context, userID uuid.UUID) ([]database.UserPaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, arg database.DeletePaymentMethodParams) (int64, error)
}

// ProfileServicer owns the writes where a new default has to replace the old
// one atomically. Satisfied by *service.ProfileService.
type ProfileServicer interface {
	CreateAddress(ctx context.Context, arg database.CreateAddressParams) (database.UserAddress, error)
	UpdateAddress(ctx context.Context, arg database.UpdateAddressParams) (database.UserAddress, error)
	CreatePaymentMethod(ctx context.Context, arg database.CreatePaymentMethodParams) (database.UserPaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, arg database.SetDefaultPaymentMethodParams) (database.UserPaymentMethod, error)
}

// ProfileHandler handles the authenticated user's profile, address and
// payment method endpoints.
type ProfileHandler struct {
	store   ProfileStore
	service ProfileServicer
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(store ProfileStore, service ProfileServicer) *ProfileHandler {
	return &ProfileHandler{store: store, service: service}
}

// RegisterRoutes registers profile endpoints on the given Chi router.
// Expected to be mounted inside the authenticated group.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.GetMe)
	r.Put("/me", h.UpdateMe)

	r.Route("/addresses", func(r chi.Router) {
		r.Get("/", h.ListAddresses)
		r.Post("/", h.CreateAddress)
		r.Put("/{id}", h.UpdateAddress)
		r.Delete("/{id}", h.DeleteAddress)
	})

	r.Route("/payment-methods", func(r chi.Router) {
		r.Get("/", h.ListPaymentMethods)
		r.Post("/", h.CreatePaymentMethod)
		r.Patch("/{id}/default", h.SetDefaultPaymentMethod)
		r.Delete("/{id}", h.DeletePaymentMethod)
	})
}

// --- Request / Response types ---

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type addressPayload struct {
	Label     string `json:"label"`
	Address   string `json:"address"`
	IsDefault bool   `json:"is_default"`
}

type addressResponse struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Address   string    `json:"address"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

type createPaymentMethodRequest struct {
	MethodType    string `json:"method_type"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	IsDefault     bool   `json:"is_default"`
}

type paymentMethodResponse struct {
	ID            uuid.UUID `json:"id"`
	MethodType    string    `json:"method_type"`
	AccountNumber string    `json:"account_number"`
	AccountName   *string   `json:"account_name"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAddressResponse(a database.UserAddress) addressResponse {
	return addressResponse{
		ID:        a.ID,
		Label:     a.Label,
		Address:   a.Address,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt,
	}
}

func toPaymentMethodResponse(m database.UserPaymentMethod) paymentMethodResponse {
	resp := paymentMethodResponse{
		ID:            m.ID,
		MethodType:    m.MethodType,
		AccountNumber: m.AccountNumber,
		IsDefault:     m.IsDefault,
		CreatedAt:     m.CreatedAt,
	}
	if m.AccountName.Valid {
		resp.AccountName = &m.AccountName.String
	}
	return resp
}

// --- Profile handlers ---

// GetMe returns the authenticated user's profile.
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	profile, err := h.store.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		log.Printf("ERROR: get profile: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateMe updates the authenticated user's name and phone.
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.FullName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "full_name is required"})
		return
	}

	var phone pgtype.Text
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	profile, err := h.store.UpdateProfile(r.Context(), database.UpdateProfileParams{
		UserID:   claims.UserID,
		FullName: req.FullName,
		Phone:    phone,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		log.Printf("ERROR: update profile: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// --- Address handlers ---

// ListAddresses returns the user's delivery addresses, default first.
func (h *ProfileHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	addresses, err := h.store.ListAddressesByUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list addresses: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]addressResponse, len(addresses))
	for i, a := range addresses {
		resp[i] = toAddressResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateAddress adds a delivery address.
func (h *ProfileHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addressPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
		return
	}
	if req.Address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address is required"})
		return
	}

	address, err := h.service.CreateAddress(r.Context(), database.CreateAddressParams{
		UserID:    claims.UserID,
		Label:     req.Label,
		Address:   req.Address,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		log.Printf("ERROR: create address: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toAddressResponse(address))
}

// UpdateAddress rewrites one of the user's addresses.
func (h *ProfileHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	addressID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address ID"})
		return
	}

	var req addressPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
		return
	}
	if req.Address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address is required"})
		return
	}

	address, err := h.service.UpdateAddress(r.Context(), database.UpdateAddressParams{
		ID:        addressID,
		UserID:    claims.UserID,
		Label:     req.Label,
		Address:   req.Address,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "address not found"})
			return
		}
		log.Printf("ERROR: update address: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toAddressResponse(address))
}

// DeleteAddress removes one of the user's addresses.
func (h *ProfileHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	addressID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address ID"})
		return
	}

	affected, err := h.store.DeleteAddress(r.Context(), database.DeleteAddressParams{
		ID:     addressID,
		UserID: claims.UserID,
	})
	if err != nil {
		log.Printf("ERROR: delete address: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "address not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Payment method handlers ---

// ListPaymentMethods returns the user's payment methods, default first.
func (h *ProfileHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	methods, err := h.store.ListPaymentMethodsByUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list payment methods: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentMethodResponse, len(methods))
	for i, m := range methods {
		resp[i] = toPaymentMethodResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreatePaymentMethod registers a mobile money account or marks cash on
// delivery.
func (h *ProfileHandler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !isValidMethodType(req.MethodType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid method_type"})
		return
	}
	if req.MethodType != enum.PaymentMethodCash && req.AccountNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "account_number is required"})
		return
	}

	var accountName pgtype.Text
	if req.AccountName != "" {
		accountName = pgtype.Text{String: req.AccountName, Valid: true}
	}

	method, err := h.service.CreatePaymentMethod(r.Context(), database.CreatePaymentMethodParams{
		UserID:        claims.UserID,
		MethodType:    req.MethodType,
		AccountNumber: req.AccountNumber,
		AccountName:   accountName,
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		log.Printf("ERROR: create payment method: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentMethodResponse(method))
}

// SetDefaultPaymentMethod makes one payment method the default.
func (h *ProfileHandler) SetDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	methodID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment method ID"})
		return
	}

	method, err := h.service.SetDefaultPaymentMethod(r.Context(), database.SetDefaultPaymentMethodParams{
		ID:     methodID,
		UserID: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "payment method not found"})
			return
		}
		log.Printf("ERROR: set default payment method: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPaymentMethodResponse(method))
}

// DeletePaymentMethod removes one of the user's payment methods.
func (h *ProfileHandler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	methodID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment method ID"})
		return
	}

	affected, err := h.store.DeletePaymentMethod(r.Context(), database.DeletePaymentMethodParams{
		ID:     methodID,
		UserID: claims.UserID,
	})
	if err != nil {
		log.Printf("ERROR: delete payment method: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "payment method not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isValidMethodType(t string) bool {
	switch t {
	case enum.PaymentMethodTMoney, enum.PaymentMethodFlooz, enum.PaymentMethodCash:
		return true
	}
	return false
}
