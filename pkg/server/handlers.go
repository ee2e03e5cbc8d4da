package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/db"
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// inboundSMSHandler receives provider webhooks for inbound messages.
// Form-encoded From and Body fields, Twilio style.
func (a *App) inboundSMSHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body"})
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing From"})
		return
	}

	if err := a.Outreach.HandleReply(r.Context(), from, body); err != nil {
		// The provider retries on 5xx; reply handling is idempotent so that
		// is safe
		a.Logger.Warn("Failed to handle inbound reply", zap.String("from", from), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process reply"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// smsStatusHandler receives provider delivery-status callbacks and appends
// them to the notification log
func (a *App) smsStatusHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body"})
		return
	}

	status := r.PostFormValue("MessageStatus")
	to := r.PostFormValue("To")
	sid := r.PostFormValue("MessageSid")
	if status == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing MessageStatus or To"})
		return
	}

	rec := &db.NotificationRecord{
		ID:        uuid.New().String(),
		Type:      status,
		Recipient: to,
		CompanyID: a.CompanyID,
		Body:      sid,
	}
	if err := a.Feed.InsertNotificationRecord(r.Context(), rec); err != nil {
		a.Logger.Warn("Failed to log delivery status", zap.String("sid", sid), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to log status"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// fillPositionHandler triggers the queue advancer for a position
func (a *App) fillPositionHandler(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")

	if err := a.Outreach.AdvanceQueue(r.Context(), positionID); err != nil {
		a.Logger.Warn("Failed to advance queue", zap.String("position_id", positionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to advance queue"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"position_id": positionID})
}

type sendCallCardsRequest struct {
	DocumentURL string `json:"documentURL"`
}

// sendCallCardsHandler fans call-card messages out to a call sheet's
// recipients
func (a *App) sendCallCardsHandler(w http.ResponseWriter, r *http.Request) {
	callSheetID := chi.URLParam(r, "callSheetID")

	var req sendCallCardsRequest
	if r.Body != nil {
		// Body is optional; an empty document URL is allowed
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	summary, err := a.CallCards.SendCallCards(r.Context(), callSheetID, req.DocumentURL)
	if err != nil {
		a.Logger.Warn("Failed to send call cards", zap.String("call_sheet_id", callSheetID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send call cards"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"attempted": summary.Attempted(),
		"succeeded": summary.Succeeded(),
		"failed":    summary.Failed(),
	})
}

type applyPushRequest struct {
	Hours       int    `json:"hours"`
	Minutes     int    `json:"minutes"`
	Notify      bool   `json:"notify"`
	DocumentRef string `json:"documentRef"`
}

// applyPushHandler applies a call-time push to a call sheet
func (a *App) applyPushHandler(w http.ResponseWriter, r *http.Request) {
	callSheetID := chi.URLParam(r, "callSheetID")

	var req applyPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	push := &db.CallCardPush{
		ID:          uuid.New().String(),
		CallSheetID: callSheetID,
		Hours:       req.Hours,
		Minutes:     req.Minutes,
		Notify:      req.Notify,
		DocumentRef: req.DocumentRef,
	}

	summary, err := a.CallCards.ApplyPush(r.Context(), push)
	if err != nil {
		a.Logger.Warn("Failed to apply push", zap.String("call_sheet_id", callSheetID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to apply push"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"attempted": summary.Attempted(),
		"succeeded": summary.Succeeded(),
		"failed":    summary.Failed(),
	})
}

// listNotificationsHandler returns the company activity feed
func (a *App) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := a.Feed.ListNotificationRecords(r.Context(), a.CompanyID, 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load notifications"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}

// markReadHandler flips the read flag on a feed record
func (a *App) markReadHandler(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")

	if err := a.Feed.MarkNotificationRead(r.Context(), recordID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark read"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
