package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kkkkikiki/leadcrm/internal/model"
	"github.com/kkkkikiki/leadcrm/internal/proration"
	"github.com/kkkkikiki/leadcrm/internal/repository"
	"github.com/kkkkikiki/leadcrm/internal/service"
)

// Server exposes the lead lifecycle and campaign spend REST surface.
type Server struct {
	db        *sqlx.DB
	leads     *service.LeadService
	campaigns *service.CampaignService
}

// New creates a new API server.
func New(db *sqlx.DB, leads *service.LeadService, campaigns *service.CampaignService) *Server {
	return &Server{db: db, leads: leads, campaigns: campaigns}
}

// Router wires the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/health/db", s.handleHealthDB)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/leads/perso", s.handleListLostLeads)
	r.Put("/leads/{id}", s.handleUpdateLead)

	r.Get("/campaigns", s.handleListCampaigns)
	r.Route("/campaigns/{id}/spend", func(r chi.Router) {
		r.Get("/", s.handleGetSpend)
		r.Post("/", s.handleUpsertSpend)
		r.Put("/", s.handleUpsertSpend)
		r.Delete("/", s.handleDeleteSpend)
	})

	r.Get("/master-campaigns", s.handleListMasterCampaigns)
	r.Post("/master-campaigns", s.handleFindOrCreateMaster)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"service":  "leadcrm",
		"hostname": hostname,
	})
}

func (s *Server) handleHealthDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "error", "message": "postgres unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "postgres": "connected"})
}

// pagination is the list envelope shared by paged endpoints.
type pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

func (s *Server) handleListLostLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = service.DefaultLostPageSize
	}
	if pageSize > service.MaxLostPageSize {
		pageSize = service.MaxLostPageSize
	}

	leads, total, err := s.leads.ListLost(r.Context(), repository.LostLeadFilter{
		Search:   q.Get("search"),
		CourseID: q.Get("courseId"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"leads": leads,
		"pagination": pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalCount: total,
			TotalPages: totalPages,
			HasMore:    page < totalPages,
		},
	})
}

// leadUpdateRequest is the PUT /leads/{id} body. Recovery claims and
// lifecycle events arrive through the same endpoint.
type leadUpdateRequest struct {
	RecoverLead bool   `json:"recoverLead"`
	ClaimLead   bool   `json:"claimLead"`
	CallOutcome string `json:"callOutcome"`
	Enrolled    bool   `json:"enrolled"`
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	actorID := r.Header.Get("X-User-ID")
	if actorID == "" {
		respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	var req leadUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.RecoverLead || req.ClaimLead:
		s.claimLead(w, r, leadID, actorID)
	case req.CallOutcome != "":
		lead, err := s.leads.RecordCall(r.Context(), leadID, actorID, model.CallOutcome(req.CallOutcome))
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, lead)
	case req.Enrolled:
		lead, err := s.leads.Enroll(r.Context(), leadID, actorID)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, lead)
	default:
		respondError(w, http.StatusBadRequest, "no supported lead update in request body")
	}
}

func (s *Server) claimLead(w http.ResponseWriter, r *http.Request, leadID, actorID string) {
	result, err := s.leads.Claim(r.Context(), leadID, actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	switch result.Outcome {
	case service.ClaimWon:
		respondJSON(w, http.StatusOK, result.Lead)
	case service.ClaimLostRace:
		// Losers are told they lost, not that something went wrong.
		respondError(w, http.StatusConflict,
			fmt.Sprintf("%s è già stato recuperato", result.Lead.Name))
	case service.ClaimNotRecoverable:
		respondError(w, http.StatusBadRequest, "Solo i lead PERSO possono essere recuperati")
	}
}

// parseWindow reads an optional date window from query parameters.
// Omitted bounds mean unbounded.
func parseWindow(q map[string][]string, startKey, endKey string) (proration.Window, error) {
	var w proration.Window
	if vs := q[startKey]; len(vs) > 0 && vs[0] != "" {
		t, err := time.Parse("2006-01-02", vs[0])
		if err != nil {
			return w, fmt.Errorf("invalid %s: %q", startKey, vs[0])
		}
		w.Start = &t
	}
	if vs := q[endKey]; len(vs) > 0 && vs[0] != "" {
		t, err := time.Parse("2006-01-02", vs[0])
		if err != nil {
			return w, fmt.Errorf("invalid %s: %q", endKey, vs[0])
		}
		w.End = &t
	}
	return w, nil
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query(), "spendStartDate", "spendEndDate")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	campaigns, err := s.campaigns.ListWithSpend(r.Context(), window)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns})
}

// spendRequest is the POST/PUT body for a spend record.
type spendRequest struct {
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate"`
	Amount    float64 `json:"amount"`
}

func (s *Server) handleGetSpend(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	if spendID := r.URL.Query().Get("spendId"); spendID != "" {
		spend, err := s.campaigns.GetSpend(r.Context(), campaignID, spendID)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, spend)
		return
	}

	spends, err := s.campaigns.ListSpend(r.Context(), campaignID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"spends": spends})
}

func (s *Server) handleUpsertSpend(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	var req spendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid startDate: %q", req.StartDate))
		return
	}
	var end *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		t, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid endDate: %q", *req.EndDate))
			return
		}
		end = &t
	}

	spend, err := s.campaigns.UpsertSpend(r.Context(), campaignID, service.SpendInput{
		StartDate: start,
		EndDate:   end,
		Amount:    req.Amount,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, spend)
}

func (s *Server) handleDeleteSpend(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	spendID := r.URL.Query().Get("spendId")
	if spendID == "" {
		respondError(w, http.StatusBadRequest, "missing spendId")
		return
	}

	if err := s.campaigns.DeleteSpend(r.Context(), campaignID, spendID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListMasterCampaigns(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query(), "startDate", "endDate")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	masters, err := s.campaigns.ListMasterMetrics(r.Context(), window)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"masterCampaigns": masters})
}

type masterRequest struct {
	Name     string `json:"name"`
	CourseID string `json:"courseId"`
}

func (s *Server) handleFindOrCreateMaster(w http.ResponseWriter, r *http.Request) {
	var req masterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	master, err := s.campaigns.FindOrCreateMaster(r.Context(), req.Name, req.CourseID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, master)
}
