package gameserver

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/enforcer/internal/law"
)

// SetPlayerWantedLevel sets uid's wanted level, clamped to the configured maximum.
func (h *LawSystemHandler) SetPlayerWantedLevel(uid uuid.UUID, level int) {
	state := h.GetOrCreatePlayerState(uid)
	state.SetWanted(level, h.cfg.MaxWantedLevel)
	h.logger.Info("wanted level set", zap.Stringer("player", uid), zap.Int("wanted", state.WantedLevel))
	h.SyncPlayer(uid)
}

// SetPlayerPeaceValue sets uid's peace value, clamped to the configured bounds.
func (h *LawSystemHandler) SetPlayerPeaceValue(uid uuid.UUID, value int) {
	state := h.GetOrCreatePlayerState(uid)
	state.SetPeace(value, h.cfg.PeaceValueMin, h.cfg.PeaceValueMax)
	h.logger.Info("peace value set", zap.Stringer("player", uid), zap.Int("peace", state.PeaceValue))
	h.SyncPlayer(uid)
}

// ToggleCrimeImmunity flips uid's immunity.
//
// Postcondition: Returns the new immunity flag.
func (h *LawSystemHandler) ToggleCrimeImmunity(uid uuid.UUID) bool {
	state := h.GetOrCreatePlayerState(uid)
	state.CrimeImmunity = !state.CrimeImmunity
	h.logger.Info("crime immunity toggled", zap.Stringer("player", uid), zap.Bool("immune", state.CrimeImmunity))
	h.SyncPlayer(uid)
	return state.CrimeImmunity
}

// ClearPlayerCrimes wipes uid's crimes and aggression without a grace window.
func (h *LawSystemHandler) ClearPlayerCrimes(uid uuid.UUID) {
	h.GetOrCreatePlayerState(uid).ClearCrimes(h.cfg.PeaceValueMax)
	h.SyncPlayer(uid)
	h.clearAggression(uid)
}

// ClearAllWanted wipes every ledger and clears aggression against every
// online player.
func (h *LawSystemHandler) ClearAllWanted() {
	for _, s := range h.states {
		s.ClearCrimes(h.cfg.PeaceValueMax)
	}
	h.SyncAllPlayers()
	for _, p := range h.players.AllPlayers() {
		h.clearAggression(p.UID)
	}
	h.logger.Info("cleared all wanted levels", zap.Int("ledgers", len(h.states)))
}

// RunSimulation runs seconds worth of ticks (at most one minute) against the
// live state, advancing law time by one tick per simulated tick.
//
// Postcondition: Returns the number of ticks simulated.
func (h *LawSystemHandler) RunSimulation(seconds int) int {
	ticks := min(max(seconds, 0), maxSimulationSeconds) * ticksPerSecond
	for range ticks {
		h.clock.offset++
		h.HandleServerTick()
	}
	h.logger.Info("simulation complete", zap.Int("ticks", ticks), zap.Int("wanted_players", h.WantedPlayerCount()))
	return ticks
}

// PlayerSummary is one online player's row in the admin snapshot.
type PlayerSummary struct {
	Player      uuid.UUID
	Name        string
	WantedLevel int
	PeaceValue  int
	Immune      bool
	Standing    string
	Guards      int
	Crimes      int
	LastCrime   int64
}

// AdminData is the admin snapshot of the law system.
type AdminData struct {
	Config        law.Config
	Tick          int64
	MerchantCount int
	GuardCount    int
	WantedCount   int
	Players       []PlayerSummary
}

// BuildAdminData snapshots config, population counts and online players.
func (h *LawSystemHandler) BuildAdminData() AdminData {
	online := h.players.AllPlayers()
	data := AdminData{
		Config:        h.cfg.Clone(),
		Tick:          h.clock.Now(),
		MerchantCount: h.crime.MerchantCount(),
		GuardCount:    h.guards.TotalGuardCount(),
		WantedCount:   h.WantedPlayerCount(),
		Players:       make([]PlayerSummary, 0, len(online)),
	}
	for _, p := range online {
		s := h.GetOrCreatePlayerState(p.UID)
		data.Players = append(data.Players, PlayerSummary{
			Player:      p.UID,
			Name:        p.Name,
			WantedLevel: s.WantedLevel,
			PeaceValue:  s.PeaceValue,
			Immune:      s.CrimeImmunity,
			Standing:    h.PlayerStanding(p.UID).String(),
			Guards:      h.guards.GuardCountForPlayer(p.UID),
			Crimes:      len(s.CrimeHistory),
			LastCrime:   s.LastCrimeTime,
		})
	}
	return data
}

// Struct encodes the snapshot as a protobuf Struct. The config travels as
// its YAML blob.
func (d AdminData) Struct() (*structpb.Struct, error) {
	blob, err := law.EncodeConfig(d.Config)
	if err != nil {
		return nil, err
	}
	players := make([]any, 0, len(d.Players))
	for _, p := range d.Players {
		players = append(players, map[string]any{
			"player":       p.Player.String(),
			"name":         p.Name,
			"wanted_level": p.WantedLevel,
			"peace_value":  p.PeaceValue,
			"immune":       p.Immune,
			"standing":     p.Standing,
			"guards":       p.Guards,
			"crimes":       p.Crimes,
			"last_crime":   p.LastCrime,
		})
	}
	s, err := structpb.NewStruct(map[string]any{
		"profile":        d.Config.ProfileName,
		"enabled":        d.Config.SystemEnabled,
		"tick":           d.Tick,
		"merchant_count": d.MerchantCount,
		"guard_count":    d.GuardCount,
		"wanted_count":   d.WantedCount,
		"config_yaml":    string(blob),
		"players":        players,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding admin data: %w", err)
	}
	return s, nil
}
