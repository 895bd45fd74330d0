package app

import (
	"time"

	"github.com/daybook/daybook/internal/config"
	"github.com/daybook/daybook/internal/event_bus"
	"github.com/daybook/daybook/internal/utils"
	"github.com/daybook/daybook/pkg/calendar"
	"github.com/daybook/daybook/pkg/google"
	"github.com/daybook/daybook/pkg/settings"
	"github.com/daybook/daybook/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus *event_bus.EventBus

	UserService user.Service

	SettingsStore settings.Store

	Credentials    *google.CredentialStore
	TokenRepo      google.TokenRepository
	TokenLifecycle *google.TokenLifecycle
	GoogleService  google.Service
	GoogleAuth     *google.GoogleAuth
	GoogleHandler  *google.Handler

	CalendarRepo    calendar.Repository
	SyncService     *calendar.SyncService
	CalendarHandler *calendar.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db))

	deps.SettingsStore = settings.NewStore(db)

	deps.Credentials = google.NewCredentialStore(deps.SettingsStore, cfg.Host)
	deps.TokenRepo = google.NewTokenRepository(db)
	deps.TokenLifecycle = google.NewTokenLifecycle(deps.TokenRepo, deps.Credentials.OAuth2Config, deps.Clock)
	deps.GoogleService = google.NewService(deps.Credentials, deps.TokenLifecycle, deps.UserService)
	deps.GoogleAuth = google.NewGoogleAuth(deps.Credentials, deps.TokenRepo, deps.TokenLifecycle, deps.GoogleService)
	deps.GoogleHandler = google.NewHandler(deps.GoogleService)

	deps.CalendarRepo = calendar.NewRepository(db)
	deps.SyncService = calendar.NewSyncService(deps.GoogleService, deps.CalendarRepo, deps.UserService, deps.Bus, deps.Clock)
	deps.CalendarHandler = calendar.NewHandler(deps.SyncService)

	registerSubscriptions(deps)

	return deps
}

// registerSubscriptions attaches cross-cutting event handlers to the bus.
func registerSubscriptions(deps *Dependencies) {
	event_bus.SubscribeTyped(deps.Bus, event_bus.SyncCompleted, func(e event_bus.EventT[event_bus.CalendarSyncCompleted]) error {
		syncedAt := e.Timestamp.UTC().Format(time.RFC3339)
		if err := deps.SettingsStore.Set(e.Context(), settings.GoogleLastSyncAt, syncedAt); err != nil {
			log.Warnf("failed to record last sync time: %v", err)
			return err
		}
		log.Debugf("recorded sync of %d events for user %d", e.Data.SyncedCount, e.Data.UserId)
		return nil
	})
}
