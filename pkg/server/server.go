package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/core/callcard"
	"github.com/jparkhurst/crewcall/pkg/core/outreach"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// FeedStore defines the notification-feed operations the server needs
type FeedStore interface {
	InsertNotificationRecord(ctx context.Context, rec *db.NotificationRecord) error
	ListNotificationRecords(ctx context.Context, companyID string, limit int) ([]db.NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, recordID string) error
}

// App holds the dependencies shared across all handlers
type App struct {
	Outreach  *outreach.Service
	CallCards *callcard.Service
	Feed      FeedStore
	Logger    *zap.Logger
	CompanyID string
}

// NewRouter builds the HTTP routes
func NewRouter(app *App) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler)

	r.Post("/webhooks/sms/inbound", app.inboundSMSHandler)
	r.Post("/webhooks/sms/status", app.smsStatusHandler)

	r.Post("/positions/{positionID}/fill", app.fillPositionHandler)
	r.Post("/callsheets/{callSheetID}/callcards", app.sendCallCardsHandler)
	r.Post("/callsheets/{callSheetID}/push", app.applyPushHandler)

	r.Get("/notifications", app.listNotificationsHandler)
	r.Post("/notifications/{recordID}/read", app.markReadHandler)

	return r
}

// Serve runs the HTTP server until the context is cancelled
func Serve(ctx context.Context, addr string, app *App) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(app),
	}

	errChan := make(chan error, 1)
	go func() {
		app.Logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
