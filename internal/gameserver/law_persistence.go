package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/law"
)

// persistTimeout bounds a periodic save.
const persistTimeout = 10 * time.Second

// LawStore persists the law config blob and the player ledgers.
//
// LoadConfig returns a nil blob and no error when nothing was saved yet.
// Ledger ticks are stored relative to the tick of the save, so they are
// zero or negative; the clock restarts with every process.
type LawStore interface {
	LoadConfig(ctx context.Context) (profile string, blob []byte, err error)
	SaveConfig(ctx context.Context, profile string, blob []byte) error
	LoadPlayers(ctx context.Context) ([]*law.PlayerLawState, error)
	SavePlayers(ctx context.Context, states []*law.PlayerLawState) error
}

// Initialize loads config and ledgers from the store and populates merchant
// posts. Load failures are logged and leave defaults in place.
func (h *LawSystemHandler) Initialize(ctx context.Context) {
	if h.store != nil {
		if err := h.loadConfig(ctx); err != nil {
			h.logger.Error("loading law config", zap.Error(err))
		}
		if err := h.loadPlayers(ctx); err != nil {
			h.logger.Error("loading player ledgers", zap.Error(err))
		}
	}
	n := h.PopulateMerchants()
	h.logger.Info("law system initialized",
		zap.String("profile", h.cfg.ProfileName),
		zap.Bool("enabled", h.cfg.SystemEnabled),
		zap.Int("regions", len(h.cfg.Regions)),
		zap.Int("ledgers", len(h.states)),
		zap.Int("merchants", n),
	)
}

// Shutdown persists config and ledgers.
func (h *LawSystemHandler) Shutdown(ctx context.Context) error {
	return h.SaveAll(ctx)
}

// ReloadConfig replaces the active config with the stored one.
//
// Postcondition: On error the active config is unchanged.
func (h *LawSystemHandler) ReloadConfig(ctx context.Context) error {
	if h.store == nil {
		return fmt.Errorf("no law store configured")
	}
	if err := h.loadConfig(ctx); err != nil {
		h.logger.Error("reloading law config", zap.Error(err))
		return err
	}
	for _, s := range h.states {
		s.Normalize(h.cfg.MaxWantedLevel, h.cfg.PeaceValueMin, h.cfg.PeaceValueMax)
	}
	h.logger.Info("law config reloaded", zap.String("profile", h.cfg.ProfileName))
	return nil
}

func (h *LawSystemHandler) loadConfig(ctx context.Context) error {
	profile, blob, err := h.store.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if len(blob) == 0 {
		return nil
	}
	cfg, err := law.DecodeConfig(blob)
	if err != nil {
		return err
	}
	if profile != "" {
		cfg.ProfileName = profile
	}
	h.applyConfig(cfg)
	return nil
}

func (h *LawSystemHandler) loadPlayers(ctx context.Context) error {
	states, err := h.store.LoadPlayers(ctx)
	if err != nil {
		return err
	}
	now := h.clock.Now()
	for _, s := range states {
		s.Rebase(now)
		s.Normalize(h.cfg.MaxWantedLevel, h.cfg.PeaceValueMin, h.cfg.PeaceValueMax)
		h.states[s.PlayerID] = s
	}
	return nil
}

// SaveAll writes the config blob and every ledger. Failures are logged and
// in-memory state is kept.
func (h *LawSystemHandler) SaveAll(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	var errs []error
	blob, err := law.EncodeConfig(h.cfg)
	if err == nil {
		err = h.store.SaveConfig(ctx, h.cfg.ProfileName, blob)
	}
	if err != nil {
		h.logger.Error("saving law config", zap.Error(err))
		errs = append(errs, err)
	}
	states := h.PlayerStates()
	now := h.clock.Now()
	for _, s := range states {
		s.Rebase(-now)
	}
	if err := h.store.SavePlayers(ctx, states); err != nil {
		h.logger.Error("saving player ledgers", zap.Error(err))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		h.logger.Debug("law state saved", zap.Int("ledgers", len(h.states)))
	}
	return errors.Join(errs...)
}
