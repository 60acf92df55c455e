package httpapi

import (
	"net/http"

	"github.com/dmitrymomot/policydesk/internal/crm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// naiveLayout renders wall-clock due times without a zone suffix.
const naiveLayout = "2006-01-02T15:04:05"

type reminderView struct {
	PolicyNumber string `json:"policy_number,omitempty"`
	ClientName   string `json:"client_name,omitempty"`
	DueAt        string `json:"due_at"`
	Content      string `json:"content"`
	ID           int64  `json:"id"`
	ClientID     int64  `json:"client_id"`
	Delivered    bool   `json:"delivered"`
}

func toReminderView(r crm.Reminder) reminderView {
	v := reminderView{
		ID:        r.ID,
		ClientID:  r.ClientID,
		DueAt:     r.DueAt.Format(naiveLayout),
		Content:   r.Content,
		Delivered: r.Delivered,
	}
	if r.Client != nil {
		v.ClientName = r.Client.FullName()
	}
	if r.Policy != nil {
		v.PolicyNumber = r.Policy.Number
	}
	return v
}

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) error {
	limit := min(max(queryInt(r, "limit", defaultListLimit), 1), maxListLimit)

	reminders, err := s.store.ListReminders(r.Context(), limit)
	if err != nil {
		return ErrInternal("failed to list reminders", WithError(err))
	}

	views := make([]reminderView, 0, len(reminders))
	for _, rem := range reminders {
		views = append(views, toReminderView(rem))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": views})
	return nil
}
