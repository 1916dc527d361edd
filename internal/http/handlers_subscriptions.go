package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"spendtrail/internal/core"
	"spendtrail/internal/services"
)

type createSubscriptionRequest struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Frequency   string          `json:"frequency"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date,omitempty"`
	RepeatCount int64           `json:"repeat_count,omitempty"`
}

// updateSubscriptionRequest carries a partial update: absent fields
// keep their stored value, which is why the optional ones are pointers.
type updateSubscriptionRequest struct {
	ID          int64            `json:"id"`
	Name        *string          `json:"name,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Active      *bool            `json:"is_active,omitempty"`
	EndDate     *string          `json:"end_date,omitempty"`
	RepeatCount *int64           `json:"repeat_count,omitempty"`
}

type subscriptionResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Frequency   string  `json:"frequency"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date,omitempty"`
	RepeatCount int64   `json:"repeat_count,omitempty"`
	Active      bool    `json:"is_active"`
	Occurrences int64   `json:"occurrences"`
	NextDue     string  `json:"next_due,omitempty"`
}

func toSubscriptionResponse(sub core.Subscription, proj services.Projection) subscriptionResponse {
	resp := subscriptionResponse{
		ID:          sub.ID,
		Name:        sub.Name,
		Amount:      sub.Amount.Units(),
		Category:    sub.Category,
		Frequency:   string(sub.Frequency),
		StartDate:   sub.StartDate.String(),
		RepeatCount: sub.RepeatCount,
		Active:      sub.Active,
		Occurrences: sub.Occurrences,
	}
	if !sub.EndDate.IsZero() {
		resp.EndDate = sub.EndDate.String()
	}
	if !proj.NextDue.IsZero() {
		resp.NextDue = proj.NextDue.String()
	}
	return resp
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createSubscriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.MoneyFromDecimal(req.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	startDate, err := core.ParseDate(req.StartDate)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid start date")
		return
	}
	var endDate core.Date
	if req.EndDate != "" {
		endDate, err = core.ParseDate(req.EndDate)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid end date")
			return
		}
	}

	sub := core.Subscription{
		UserID:      user.ID,
		Name:        req.Name,
		Amount:      amount,
		Category:    req.Category,
		Frequency:   core.Frequency(req.Frequency),
		StartDate:   startDate,
		EndDate:     endDate,
		RepeatCount: req.RepeatCount,
		Active:      true,
	}
	if err := sub.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.store.CreateSubscription(r.Context(), sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	slog.InfoContext(r.Context(), "Subscription created",
		"user_id", user.ID,
		"subscription_id", created.ID,
		"name", created.Name,
		"frequency", string(created.Frequency))

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(created, s.project(r, created)))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request, user core.User) {
	var req updateSubscriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub, err := s.store.SubscriptionByID(r.Context(), user.ID, req.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.Amount != nil {
		amount, err := core.MoneyFromDecimal(*req.Amount)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		sub.Amount = amount
	}
	if req.Active != nil {
		sub.Active = *req.Active
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			sub.EndDate = core.Date{}
		} else {
			endDate, err := core.ParseDate(*req.EndDate)
			if err != nil {
				writeDetail(w, http.StatusUnprocessableEntity, "invalid end date")
				return
			}
			sub.EndDate = endDate
		}
	}
	if req.RepeatCount != nil {
		sub.RepeatCount = *req.RepeatCount
	}

	if err := sub.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.store.UpdateSubscription(r.Context(), sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	slog.InfoContext(r.Context(), "Subscription updated",
		"user_id", user.ID,
		"subscription_id", updated.ID,
		"is_active", updated.Active)

	writeJSON(w, http.StatusOK, toSubscriptionResponse(updated, s.project(r, updated)))
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request, user core.User) {
	subs, err := s.store.ListSubscriptions(r.Context(), user.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionResponse(sub, s.project(r, sub)))
	}
	writeJSON(w, http.StatusOK, out)
}

// project derives the schedule state as of today. A projection failure
// only costs the enrichment fields, never the response.
func (s *Server) project(r *http.Request, sub core.Subscription) services.Projection {
	now := time.Now()
	proj, err := services.ProjectOccurrences(sub, core.NewDate(now.Year(), int(now.Month()), now.Day()))
	if err != nil {
		slog.WarnContext(r.Context(), "Failed to project subscription schedule",
			"subscription_id", sub.ID,
			"error", err)
		return services.Projection{}
	}
	return proj
}
