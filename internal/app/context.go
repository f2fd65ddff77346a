package app

import (
	"context"

	"github.com/ipagrab/ipagrab/internal/domain"
	"github.com/ipagrab/ipagrab/internal/infra/config"
	"github.com/ipagrab/ipagrab/internal/infra/logger"
)

// StoreClient speaks the private store protocol. The engine calls it through
// this interface so tests can substitute a fake without network access.
type StoreClient interface {
	Authenticate(ctx context.Context, email, password, code string) (*domain.Session, error)
	DownloadProduct(ctx context.Context, s *domain.Session, appID, versionID string) (*domain.Grant, error)
}

// History records acquisition outcomes for the /history endpoint.
type History interface {
	Record(a domain.Acquisition) error
	Recent(limit int) ([]domain.Acquisition, error)
}

// Context holds the core environment and shared resources for ipagrab.
// It acts as the single source of truth for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	Store   StoreClient
	History History
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
