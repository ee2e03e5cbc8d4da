package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/internal/config"
	"github.com/jparkhurst/crewcall/pkg/alert"
	"github.com/jparkhurst/crewcall/pkg/core/callcard"
	"github.com/jparkhurst/crewcall/pkg/core/delivery"
	"github.com/jparkhurst/crewcall/pkg/core/outreach"
	"github.com/jparkhurst/crewcall/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env       string
	Cfg       *config.Config
	Database  *postgres.DB
	Pipeline  *delivery.Pipeline
	Outreach  *outreach.Service
	CallCards *callcard.Service
	Alerter   alert.Alerter
	Logger    *zap.Logger
	Ctx       context.Context
}
