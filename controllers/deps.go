package controllers

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"proposal-management-api/config"
	"proposal-management-api/repositories"
	"proposal-management-api/services"
	"proposal-management-api/storage"
)

// Dependencies are the services the handlers call.
type Dependencies struct {
	Store         repositories.Store
	Proposals     *services.ProposalService
	Members       *services.MembershipService
	Reviews       *services.ReviewService
	Documents     *services.DocumentService
	Notifications *services.NotificationService
	Auth          *services.AuthService
	Schemes       *services.SchemeService

	JWTSecret      string
	TokenTTL       time.Duration
	MaxUploadBytes int64
}

// NewDependencies wires every service on top of one store.
func NewDependencies(store repositories.Store, files storage.DocumentStore, mailer services.Mailer, logger *zap.Logger, cfg *config.Config) *Dependencies {
	notifier := services.NewNotificationService(store, mailer, logger)
	d := &Dependencies{
		Store:         store,
		Proposals:     services.NewProposalService(store, notifier, logger),
		Members:       services.NewMembershipService(store, notifier, logger),
		Reviews:       services.NewReviewService(store, notifier, logger),
		Documents:     services.NewDocumentService(store, files, logger),
		Notifications: notifier,
		Auth:          services.NewAuthService(store, logger),
		Schemes:       services.NewSchemeService(store, logger),
		TokenTTL:      24 * time.Hour,
	}
	if cfg != nil {
		d.JWTSecret = cfg.JWT.Secret
		d.TokenTTL = time.Duration(cfg.JWT.TTLHours) * time.Hour
		d.MaxUploadBytes = cfg.MaxUploadBytes()
	}
	return d
}

var (
	depsMu sync.RWMutex
	deps   *Dependencies
)

// Configure installs the dependencies used by every handler.
func Configure(d *Dependencies) {
	depsMu.Lock()
	defer depsMu.Unlock()
	deps = d
}

// current returns the configured dependencies, building defaults from the
// config globals on first use.
func current() *Dependencies {
	depsMu.RLock()
	d := deps
	depsMu.RUnlock()
	if d != nil {
		return d
	}

	depsMu.Lock()
	defer depsMu.Unlock()
	if deps == nil {
		cfg := config.AppConfig
		uploadPath, maxBytes := "./uploads", int64(10<<20)
		var mailer services.Mailer
		if cfg != nil {
			uploadPath, maxBytes = cfg.Upload.Path, cfg.MaxUploadBytes()
			if m := config.NewMailer(cfg.SMTP); m.Enabled() {
				mailer = m
			}
		}
		files := &storage.LocalStore{Root: uploadPath, MaxBytes: maxBytes}
		deps = NewDependencies(repositories.NewGormStore(nil), files, mailer, config.Logger, cfg)
	}
	return deps
}
