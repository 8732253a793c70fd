// Package httpadapter exposes the webhook entry point and the operator
// dashboard API.
package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeweledassist/backend/internal/app/approval"
	"github.com/jeweledassist/backend/internal/app/bot"
	"github.com/jeweledassist/backend/internal/app/handoff"
	"github.com/jeweledassist/backend/internal/app/rates"
	"github.com/jeweledassist/backend/internal/domain"
	"github.com/jeweledassist/backend/internal/observability"
)

// turnTimeout bounds the detached processing of one webhook delivery. The
// provider gets its ack long before this.
const turnTimeout = 30 * time.Second

type Server struct {
	engine    *bot.Engine
	approvals *approval.Service
	handoff   *handoff.Controller
	rates     *rates.Service
	customers domain.CustomerStore
	messages  domain.MessageStore
	settings  domain.SettingsStore
}

type Deps struct {
	Engine    *bot.Engine
	Approvals *approval.Service
	Handoff   *handoff.Controller
	Rates     *rates.Service
	Customers domain.CustomerStore
	Messages  domain.MessageStore
	Settings  domain.SettingsStore
}

func NewServer(d Deps) *Server {
	return &Server{
		engine:    d.Engine,
		approvals: d.Approvals,
		handoff:   d.Handoff,
		rates:     d.Rates,
		customers: d.Customers,
		messages:  d.Messages,
		settings:  d.Settings,
	}
}

// Router assembles the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhook", s.handleWebhook)

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/inbox", s.handleInbox)
		r.Get("/chat/{customer}", s.handleChat)
		r.Post("/send-message", s.handleSendMessage)
		r.Get("/stats", s.handleStats)
		r.Get("/pending", s.handlePending)
		r.Post("/approve", s.handleApprove)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleUpdateSettings)
		r.Post("/toggle-bot", s.handleToggleBot)
		r.Get("/bot-status/{customer}", s.handleBotStatus)
	})

	return r
}

// ─────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────

type webhookRequest struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	Text      string `json:"text"`
}

type sendMessageRequest struct {
	Customer string `json:"customer"`
	Text     string `json:"text"`
}

type approveRequest struct {
	ID         string `json:"id"`
	FinalPrice int64  `json:"final_price"`
}

type toggleBotRequest struct {
	Customer string `json:"customer"`
	Enabled  bool   `json:"enabled"`
	Reason   string `json:"reason,omitempty"`
}

type settingsRequest struct {
	StoreLocation     *string  `json:"store_location,omitempty"`
	MapLink           *string  `json:"map_link,omitempty"`
	OwnerNumber       *string  `json:"owner_number,omitempty"`
	WelcomeMediaURL   *string  `json:"welcome_media_url,omitempty"`
	ApprovalThreshold *int64   `json:"approval_threshold,omitempty"`
	GoldRate          *float64 `json:"gold_rate,omitempty"`
	SilverRate        *float64 `json:"silver_rate,omitempty"`
	PlatinumRate      *float64 `json:"platinum_rate,omitempty"`
}

type customerResponse struct {
	Customer            string     `json:"customer"`
	LastQuery           string     `json:"last_query,omitempty"`
	LastContact         time.Time  `json:"last_contact"`
	Intent              string     `json:"intent,omitempty"`
	Metal               string     `json:"metal,omitempty"`
	Grams               float64    `json:"grams,omitempty"`
	Budget              string     `json:"budget,omitempty"`
	QuotedPrice         int64      `json:"quoted_price,omitempty"`
	PriceSource         string     `json:"price_source,omitempty"`
	RequiresOwnerAction bool       `json:"requires_owner_action"`
	BotEnabled          bool       `json:"bot_enabled"`
	HandoffAt           *time.Time `json:"handoff_at,omitempty"`
	HandoffReason       string     `json:"handoff_reason,omitempty"`
}

type messageResponse struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type approvalResponse struct {
	ID            string    `json:"id"`
	Customer      string    `json:"customer"`
	Type          string    `json:"type"`
	Metal         string    `json:"metal,omitempty"`
	Grams         float64   `json:"grams,omitempty"`
	Budget        string    `json:"budget,omitempty"`
	EstimatedCost int64     `json:"estimated_cost"`
	Status        string    `json:"status"`
	FinalPrice    int64     `json:"final_price,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type settingsResponse struct {
	StoreLocation     string  `json:"store_location"`
	MapLink           string  `json:"map_link"`
	OwnerNumber       string  `json:"owner_number"`
	WelcomeMediaURL   string  `json:"welcome_media_url"`
	ApprovalThreshold int64   `json:"approval_threshold"`
	GoldRate          float64 `json:"gold_rate"`
	SilverRate        float64 `json:"silver_rate"`
	PlatinumRate      float64 `json:"platinum_rate"`
}

// ─────────────────────────────────────────────
// Webhook
// ─────────────────────────────────────────────

// handleWebhook acks the provider immediately and processes the delivery in
// the background; provider retries are absorbed by the duplicate filter.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.From == "" {
		Error(w, http.StatusBadRequest, "from is required")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		s.engine.HandleInbound(ctx, req.MessageID, req.From, req.Text)
	}()

	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Dashboard
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	recs, err := s.customers.ListRecentCustomers(r.Context(), 50)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("inbox listing failed", "error", err)
		Error(w, http.StatusInternalServerError, "could not load inbox")
		return
	}

	out := make([]customerResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toCustomerResponse(rec))
	}
	JSON(w, http.StatusOK, map[string]any{"customers": out})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	customer := chi.URLParam(r, "customer")
	if customer == "" {
		Error(w, http.StatusBadRequest, "customer is required")
		return
	}

	msgs, err := s.messages.HistoryFor(r.Context(), domain.CustomerID(customer), 200)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("history load failed", "customer", customer, "error", err)
		Error(w, http.StatusInternalServerError, "could not load history")
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{From: m.From, To: m.To, Text: m.Text, Timestamp: m.Timestamp})
	}
	JSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Customer == "" || strings.TrimSpace(req.Text) == "" {
		Error(w, http.StatusBadRequest, "customer and text are required")
		return
	}

	if err := s.engine.SendDirect(r.Context(), domain.CustomerID(req.Customer), req.Text); err != nil {
		Error(w, http.StatusBadGateway, "delivery failed")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.rates.GetRates(r.Context())
	JSON(w, http.StatusOK, map[string]any{
		"pending_approvals": s.approvals.CountPending(r.Context()),
		"rates": map[string]any{
			"gold_gram_inr":     snap.GoldPerGram,
			"silver_gram_inr":   snap.SilverPerGram,
			"platinum_gram_inr": snap.PlatinumPerGram,
			"source":            string(snap.Source),
			"fetched_at":        snap.FetchedAt,
		},
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	reqs := s.approvals.ListPending(r.Context())
	out := make([]approvalResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, approvalResponse{
			ID:            string(req.ID),
			Customer:      string(req.Customer),
			Type:          string(req.Type),
			Metal:         string(req.Metal),
			Grams:         req.Grams,
			Budget:        req.Budget,
			EstimatedCost: req.EstimatedCost,
			Status:        string(req.Status),
			FinalPrice:    req.FinalPrice,
			CreatedAt:     req.CreatedAt,
		})
	}
	JSON(w, http.StatusOK, map[string]any{"requests": out})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" || req.FinalPrice <= 0 {
		Error(w, http.StatusBadRequest, "id and a positive final_price are required")
		return
	}

	id := domain.RequestID(req.ID)
	pending := s.approvals.Get(r.Context(), id)
	if pending == nil {
		Error(w, http.StatusNotFound, "request not found")
		return
	}
	if !s.approvals.Approve(r.Context(), id, req.FinalPrice) {
		Error(w, http.StatusInternalServerError, "approval failed")
		return
	}

	s.engine.NotifyApproved(r.Context(), pending.Customer, req.FinalPrice)
	JSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.settings.GetSettings(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	JSON(w, http.StatusOK, toSettingsResponse(cfg))
}

// handleUpdateSettings patches only the fields present in the request so a
// dashboard form can save one value at a time.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg, err := s.settings.GetSettings(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "could not load settings")
		return
	}

	if req.StoreLocation != nil {
		cfg.StoreLocation = *req.StoreLocation
	}
	if req.MapLink != nil {
		cfg.MapLink = *req.MapLink
	}
	if req.OwnerNumber != nil {
		cfg.OwnerNumber = *req.OwnerNumber
	}
	if req.WelcomeMediaURL != nil {
		cfg.WelcomeMediaURL = *req.WelcomeMediaURL
	}
	if req.ApprovalThreshold != nil {
		if *req.ApprovalThreshold <= 0 {
			Error(w, http.StatusBadRequest, "approval_threshold must be positive")
			return
		}
		cfg.ApprovalThreshold = *req.ApprovalThreshold
	}
	ratesChanged := false
	if req.GoldRate != nil {
		cfg.ManualRates.Gold = *req.GoldRate
		ratesChanged = true
	}
	if req.SilverRate != nil {
		cfg.ManualRates.Silver = *req.SilverRate
		ratesChanged = true
	}
	if req.PlatinumRate != nil {
		cfg.ManualRates.Platinum = *req.PlatinumRate
		ratesChanged = true
	}

	cfg.UpdatedAt = time.Now()
	if err := s.settings.UpdateSettings(r.Context(), cfg); err != nil {
		Error(w, http.StatusInternalServerError, "could not save settings")
		return
	}
	if ratesChanged {
		s.rates.Invalidate()
	}
	JSON(w, http.StatusOK, toSettingsResponse(cfg))
}

func (s *Server) handleToggleBot(w http.ResponseWriter, r *http.Request) {
	var req toggleBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Customer == "" {
		Error(w, http.StatusBadRequest, "customer is required")
		return
	}

	mode := domain.ModeAgent
	if req.Enabled {
		mode = domain.ModeBot
	}
	reason := req.Reason
	if reason == "" && mode == domain.ModeAgent {
		reason = "disabled from dashboard"
	}

	if err := s.handoff.SetMode(r.Context(), domain.CustomerID(req.Customer), mode, reason); err != nil {
		observability.LoggerFromContext(r.Context()).Error("mode switch failed", "customer", req.Customer, "error", err)
		Error(w, http.StatusInternalServerError, "could not switch mode")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"customer": req.Customer, "bot_enabled": req.Enabled})
}

func (s *Server) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	customer := chi.URLParam(r, "customer")
	if customer == "" {
		Error(w, http.StatusBadRequest, "customer is required")
		return
	}

	rec, err := s.customers.GetCustomer(r.Context(), domain.CustomerID(customer))
	if err != nil {
		Error(w, http.StatusInternalServerError, "could not load customer")
		return
	}
	if rec == nil {
		// Unseen customers default to the bot.
		JSON(w, http.StatusOK, map[string]any{"customer": customer, "bot_enabled": true})
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"customer":       customer,
		"bot_enabled":    rec.BotEnabled,
		"handoff_at":     rec.HandoffAt,
		"handoff_reason": rec.HandoffReason,
	})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func toCustomerResponse(rec *domain.CustomerRecord) customerResponse {
	return customerResponse{
		Customer:            string(rec.Customer),
		LastQuery:           rec.LastQuery,
		LastContact:         rec.LastContact,
		Intent:              rec.Intent,
		Metal:               string(rec.Metal),
		Grams:               rec.Grams,
		Budget:              rec.Budget,
		QuotedPrice:         rec.QuotedPrice,
		PriceSource:         string(rec.PriceSource),
		RequiresOwnerAction: rec.RequiresOwnerAction,
		BotEnabled:          rec.BotEnabled,
		HandoffAt:           rec.HandoffAt,
		HandoffReason:       rec.HandoffReason,
	}
}

func toSettingsResponse(cfg *domain.StoreSettings) settingsResponse {
	return settingsResponse{
		StoreLocation:     cfg.StoreLocation,
		MapLink:           cfg.MapLink,
		OwnerNumber:       cfg.OwnerNumber,
		WelcomeMediaURL:   cfg.WelcomeMediaURL,
		ApprovalThreshold: cfg.ApprovalThreshold,
		GoldRate:          cfg.ManualRates.Gold,
		SilverRate:        cfg.ManualRates.Silver,
		PlatinumRate:      cfg.ManualRates.Platinum,
	}
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
