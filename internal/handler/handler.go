// Package handler содержит HTTP-обработчики API сервиса франчайзинга.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/franchise-hub/internal/middleware"
	"github.com/mmeshcher/franchise-hub/internal/model"
	"github.com/mmeshcher/franchise-hub/internal/repository"
	"github.com/mmeshcher/franchise-hub/internal/service"
	"github.com/mmeshcher/franchise-hub/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	SubmitApplication(ctx context.Context, a *model.Applicant) (int64, error)
	ListApplicants(ctx context.Context) ([]model.Applicant, error)
	AcceptApplicant(ctx context.Context, email string) error
	RejectApplicant(ctx context.Context, email string) error
	GrantApplicant(ctx context.Context, email string) (string, error)
	IssueCredential(ctx context.Context, email string) (*model.Credential, error)
	AuthenticateAdmin(ctx context.Context, email, password string) (*model.Admin, error)
	AuthenticateFranchisee(ctx context.Context, email, secret string) error
	GetProfile(ctx context.Context, email string) (*model.Applicant, error)
	RecordSale(ctx context.Context, email string, day time.Time, revenue float64) error
	GetSales(ctx context.Context, email string, from, to *time.Time) ([]model.SalesEntry, error)
}

// Sessions определяет операции над сессиями, нужные обработчикам входа.
type Sessions interface {
	Create(ctx context.Context, role model.Role, email string) (*model.Session, error)
}

// Handler реализует HTTP-обработчики API сервиса франчайзинга.
type Handler struct {
	service        Service
	sessions       Sessions
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, sessions Sessions, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		sessions:       sessions,
		logger:         logger,
		authMiddleware: auth,
	}
}

// envelope — единый формат ответа API: признак успеха и сообщение,
// при необходимости дополненные полезной нагрузкой.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

// writeError переводит доменную ошибку в HTTP-статус и конверт ответа.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validation.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: err.Error()})
	case errors.Is(err, repository.ErrApplicantExists):
		h.writeJSON(w, http.StatusConflict, envelope{Message: "application already exists"})
	case errors.Is(err, repository.ErrApplicantNotFound):
		h.writeJSON(w, http.StatusNotFound, envelope{Message: "applicant not found"})
	case errors.Is(err, repository.ErrInvalidTransition):
		h.writeJSON(w, http.StatusConflict, envelope{Message: err.Error()})
	case errors.Is(err, service.ErrNotGranted):
		h.writeJSON(w, http.StatusConflict, envelope{Message: "franchise is not granted"})
	case errors.Is(err, service.ErrInvalidCredentials):
		h.writeJSON(w, http.StatusUnauthorized, envelope{Message: "invalid credentials"})
	default:
		h.logger.Error("internal error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal error"})
	}
}

// Health возвращает статус сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "franchise-hub API is running",
		Payload: map[string]string{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

type applicationRequest struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	ResidentialAddress string `json:"residential_address"`
	BusinessName       string `json:"business_name"`
	SiteAddress        string `json:"site_address"`
	SiteCity           string `json:"site_city"`
	SitePostal         string `json:"site_postal"`
	AreaSqft           string `json:"area_sqft"`
	SiteFloor          string `json:"site_floor"`
	Ownership          string `json:"ownership"`
}

// SubmitApplication принимает новую заявку на франшизу.
func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	_, err := h.service.SubmitApplication(r.Context(), &model.Applicant{
		Email:              req.Email,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Phone:              req.Phone,
		ResidentialAddress: req.ResidentialAddress,
		BusinessName:       req.BusinessName,
		SiteAddress:        req.SiteAddress,
		SiteCity:           req.SiteCity,
		SitePostal:         req.SitePostal,
		AreaSqft:           req.AreaSqft,
		SiteFloor:          req.SiteFloor,
		Ownership:          req.Ownership,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "application submitted"})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLogin выполняет аутентификацию администратора и создаёт сессию.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "email and password are required"})
		return
	}

	admin, err := h.service.AuthenticateAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sess, err := h.sessions.Create(r.Context(), model.RoleAdmin, admin.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.authMiddleware.SetSessionCookie(w, sess)
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "login successful"})
}

// FranchiseeLogin выполняет аутентификацию франчайзи и создаёт сессию.
func (h *Handler) FranchiseeLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "email and password are required"})
		return
	}

	if err := h.service.AuthenticateFranchisee(r.Context(), req.Email, req.Password); err != nil {
		h.writeError(w, err)
		return
	}

	sess, err := h.sessions.Create(r.Context(), model.RoleFranchisee, validation.NormalizeEmail(req.Email))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.authMiddleware.SetSessionCookie(w, sess)
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "login successful"})
}

// Logout завершает текущую сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authMiddleware.ClearSession(w, r); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "logged out"})
}

type applicantResponse struct {
	Email              string `json:"email"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Phone              string `json:"phone"`
	ResidentialAddress string `json:"residential_address"`
	BusinessName       string `json:"business_name"`
	SiteAddress        string `json:"site_address"`
	SiteCity           string `json:"site_city"`
	SitePostal         string `json:"site_postal"`
	AreaSqft           string `json:"area_sqft"`
	SiteFloor          string `json:"site_floor"`
	Ownership          string `json:"ownership"`
	Status             string `json:"status"`
	AppliedAt          string `json:"applied_at"`
}

func toApplicantResponse(a model.Applicant) applicantResponse {
	return applicantResponse{
		Email:              a.Email,
		FirstName:          a.FirstName,
		LastName:           a.LastName,
		Phone:              a.Phone,
		ResidentialAddress: a.ResidentialAddress,
		BusinessName:       a.BusinessName,
		SiteAddress:        a.SiteAddress,
		SiteCity:           a.SiteCity,
		SitePostal:         a.SitePostal,
		AreaSqft:           a.AreaSqft,
		SiteFloor:          a.SiteFloor,
		Ownership:          a.Ownership,
		Status:             string(a.Status),
		AppliedAt:          a.AppliedAt.Format(time.RFC3339),
	}
}

// ListApplicants возвращает все заявки, новые первыми.
func (h *Handler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	applicants, err := h.service.ListApplicants(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]applicantResponse, 0, len(applicants))
	for _, a := range applicants {
		resp = append(resp, toApplicantResponse(a))
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Payload: resp})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) decideApplicant(w http.ResponseWriter, r *http.Request, decide func(context.Context, string) error, message string) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	if req.Email == "" {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "email is required"})
		return
	}

	if err := decide(r.Context(), req.Email); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

// AcceptApplicant переводит заявку в состояние accepted.
func (h *Handler) AcceptApplicant(w http.ResponseWriter, r *http.Request) {
	h.decideApplicant(w, r, h.service.AcceptApplicant, "applicant accepted")
}

// RejectApplicant переводит заявку в состояние rejected.
func (h *Handler) RejectApplicant(w http.ResponseWriter, r *http.Request) {
	h.decideApplicant(w, r, h.service.RejectApplicant, "applicant rejected")
}

type secretPayload struct {
	Secret string `json:"secret"`
}

// GrantApplicant предоставляет франшизу и возвращает секрет франчайзи.
func (h *Handler) GrantApplicant(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	if req.Email == "" {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "email is required"})
		return
	}

	secret, err := h.service.GrantApplicant(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "franchise granted",
		Payload: secretPayload{Secret: secret},
	})
}

// IssueCredential выдаёт (или повторно возвращает) учётные данные франчайзи.
func (h *Handler) IssueCredential(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	if req.Email == "" {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "email is required"})
		return
	}

	cred, err := h.service.IssueCredential(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "credentials issued",
		Payload: secretPayload{Secret: cred.Secret},
	})
}

type salesQueryRequest struct {
	Email string `json:"email,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type salesEntryResponse struct {
	Day     string  `json:"day"`
	Revenue float64 `json:"revenue"`
}

func (h *Handler) writeSales(w http.ResponseWriter, entries []model.SalesEntry) {
	resp := make([]salesEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, salesEntryResponse{
			Day:     e.Day.Format("2006-01-02"),
			Revenue: e.Revenue(),
		})
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Payload: resp})
}

func parseSalesRange(start, end string) (*time.Time, *time.Time, error) {
	if start == "" || end == "" {
		return nil, nil, nil
	}

	from, err := validation.ParseSaleDate(start)
	if err != nil {
		return nil, nil, err
	}
	to, err := validation.ParseSaleDate(end)
	if err != nil {
		return nil, nil, err
	}

	return &from, &to, nil
}

// AdminSales возвращает выручку указанного франчайзи за период.
func (h *Handler) AdminSales(w http.ResponseWriter, r *http.Request) {
	var req salesQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	if req.Email == "" {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "email is required"})
		return
	}

	from, to, err := parseSalesRange(req.Start, req.End)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, err := h.service.GetSales(r.Context(), req.Email, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSales(w, entries)
}

// Profile возвращает заявку текущего франчайзи.
// Email берётся из сессии, а не из параметров запроса.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, envelope{Message: "not authenticated"})
		return
	}

	profile, err := h.service.GetProfile(r.Context(), id.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Payload: toApplicantResponse(*profile)})
}

type addSaleRequest struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// AddSale сохраняет выручку текущего франчайзи за день.
// Email берётся из сессии, а не из тела запроса.
func (h *Handler) AddSale(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, envelope{Message: "not authenticated"})
		return
	}

	var req addSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	day, err := validation.ParseSaleDate(req.Date)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.service.RecordSale(r.Context(), id.Email, day, req.Revenue); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "sales recorded"})
}

// FranchiseeSales возвращает выручку текущего франчайзи за период.
func (h *Handler) FranchiseeSales(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, envelope{Message: "not authenticated"})
		return
	}

	var req salesQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Message: "malformed request body"})
		return
	}

	from, to, err := parseSalesRange(req.Start, req.End)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Email всегда из сессии: франчайзи не может запросить чужие продажи.
	entries, err := h.service.GetSales(r.Context(), id.Email, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSales(w, entries)
}
