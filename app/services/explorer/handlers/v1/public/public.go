// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ardanlabs/blockvault/business/web/errs"
	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/events"
	"github.com/ardanlabs/blockvault/foundation/validate"
	"github.com/ardanlabs/blockvault/foundation/web"
)

// Handlers manages the set of explorer endpoints.
type Handlers struct {
	Log            *zap.SugaredLogger
	State          *state.State
	WS             websocket.Upgrader
	Evts           *events.Events
	WarnDifficulty uint
	MaxBodyBytes   int64
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Blocks returns the stored chain in index order.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks, err := h.State.RetrieveBlocks()
	if err != nil {
		return err
	}

	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockCount returns the number of stored blocks.
func (h Handlers) BlockCount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := h.State.RetrieveBlockCount()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, blockCount{Count: n}, http.StatusOK)
}

// StartMining starts a mining session for the provided data.
func (h Handlers) StartMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req MiningRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	difficulty := h.State.RetrieveDifficulty()
	if req.Difficulty != nil {
		difficulty = *req.Difficulty
	}

	var resp miningStarted
	if h.WarnDifficulty > 0 && difficulty > h.WarnDifficulty {
		resp.Warning = fmt.Sprintf("difficulty %d may take a very long time to mine", difficulty)
	}

	h.Log.Infow("start mining", "traceid", v.TraceID, "difficulty", difficulty, "bytes", len(req.Data))

	session, err := h.State.Worker.SignalStartMining(req.Data, difficulty)
	if err != nil {
		return err
	}
	resp.Session = session

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// CancelMining stops the active mining session.
func (h Handlers) CancelMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := miningCancelled{
		Cancelled: h.State.Worker.SignalCancelMining(),
		Session:   h.State.Worker.Session(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// MiningStatus returns the current or last mining session.
func (h Handlers) MiningStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Worker.Session(), http.StatusOK)
}

// ValidateChain verifies every stored block and returns the report.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	report, err := h.State.ValidateChain()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, report, http.StatusOK)
}

// History returns the mining records, newest first.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	records, err := h.State.RetrieveHistory()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, records, http.StatusOK)
}

// Snapshots returns the stored snapshots for a type, newest first.
func (h Handlers) Snapshots(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	typ := web.Param(r, "type")
	if err := validate.Var("type", typ, "oneof=blockchain miningHistory full"); err != nil {
		return err
	}

	snaps, err := h.State.RetrieveSnapshots(typ)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, snaps, http.StatusOK)
}

// CreateSnapshot stores a snapshot of the current data for a type.
func (h Handlers) CreateSnapshot(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	typ := web.Param(r, "type")
	if err := validate.Var("type", typ, "oneof=blockchain miningHistory full"); err != nil {
		return err
	}

	snap, err := h.State.CreateSnapshot(typ)
	if err != nil {
		return err
	}
	snap.Data = nil

	return web.Respond(ctx, w, snap, http.StatusCreated)
}

// RestoreSnapshot replaces the stored data with the contents of a snapshot.
func (h Handlers) RestoreSnapshot(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	id := web.Param(r, "id")

	h.Log.Infow("restore snapshot", "traceid", v.TraceID, "id", id)

	if err := h.State.ApplySnapshot(id); err != nil {
		return err
	}

	return web.Respond(ctx, w, status{Status: "snapshot restored"}, http.StatusOK)
}

// ExportBundle returns the document holding everything that is stored.
func (h Handlers) ExportBundle(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	doc, err := h.State.ExportBundle()
	if err != nil {
		return err
	}

	name := fmt.Sprintf("attachment; filename=\"blockvault-%s.json\"", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", name)

	return web.RespondRaw(ctx, w, doc, "application/json", http.StatusOK)
}

// ImportBundle replaces the stored data with the contents of the bundle
// in the request body.
func (h Handlers) ImportBundle(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	doc, err := web.ReadBody(r, h.MaxBodyBytes)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("import bundle", "traceid", v.TraceID, "bytes", len(doc))

	if err := h.State.ImportBundle(doc); err != nil {
		return err
	}

	return web.Respond(ctx, w, status{Status: "bundle imported"}, http.StatusOK)
}

// Settings returns the settings document.
func (h Handlers) Settings(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	doc, err := h.State.RetrieveSettings()
	if err != nil {
		return err
	}

	return web.RespondRaw(ctx, w, doc, "application/json", http.StatusOK)
}

// UpdateSettings stores the settings document in the request body.
func (h Handlers) UpdateSettings(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	doc, err := web.ReadBody(r, h.MaxBodyBytes)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	// The known fields are checked so a bad value can't reach the miner.
	var settings persist.Settings
	if err := json.Unmarshal(doc, &settings); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode settings: %w", err), http.StatusBadRequest)
	}
	if err := validate.Var("mining.difficulty", settings.Mining.Difficulty, "max=64"); err != nil {
		return err
	}

	if err := h.State.UpdateSettings(doc); err != nil {
		return err
	}

	return web.Respond(ctx, w, status{Status: "settings saved"}, http.StatusOK)
}

// Stats returns the number of records held in each table.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	stats, err := h.State.RetrieveStats()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, stats, http.StatusOK)
}

// Reset removes everything stored.
func (h Handlers) Reset(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.Log.Infow("reset store", "traceid", v.TraceID)

	if err := h.State.Reset(); err != nil {
		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
