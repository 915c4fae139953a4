// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ardanlabs/blockvault/app/services/explorer/handlers/v1/public"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/events"
	"github.com/ardanlabs/blockvault/foundation/web"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log            *zap.SugaredLogger
	State          *state.State
	Evts           *events.Events
	WarnDifficulty uint
	MaxBodyBytes   int64
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:            cfg.Log,
		State:          cfg.State,
		Evts:           cfg.Evts,
		WarnDifficulty: cfg.WarnDifficulty,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/count", pbl.BlockCount)
	app.Handle(http.MethodPost, version, "/mining/start", pbl.StartMining)
	app.Handle(http.MethodPost, version, "/mining/cancel", pbl.CancelMining)
	app.Handle(http.MethodGet, version, "/mining/status", pbl.MiningStatus)
	app.Handle(http.MethodGet, version, "/chain/validate", pbl.ValidateChain)
	app.Handle(http.MethodGet, version, "/history/list", pbl.History)
	app.Handle(http.MethodGet, version, "/backups/list/:type", pbl.Snapshots)
	app.Handle(http.MethodPost, version, "/backups/export/:type", pbl.CreateSnapshot)
	app.Handle(http.MethodPost, version, "/backups/restore/:id", pbl.RestoreSnapshot)
	app.Handle(http.MethodGet, version, "/bundle/export", pbl.ExportBundle)
	app.Handle(http.MethodPost, version, "/bundle/import", pbl.ImportBundle)
	app.Handle(http.MethodGet, version, "/settings", pbl.Settings)
	app.Handle(http.MethodPut, version, "/settings", pbl.UpdateSettings)
	app.Handle(http.MethodGet, version, "/stats", pbl.Stats)
	app.Handle(http.MethodDelete, version, "/data", pbl.Reset)
}
