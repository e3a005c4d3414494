package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/enforcer/internal/law"
)

// LawRepository persists the law config and player ledgers.
type LawRepository struct {
	db *pgxpool.Pool
}

// NewLawRepository creates a LawRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the law schema migrated.
func NewLawRepository(db *pgxpool.Pool) *LawRepository {
	return &LawRepository{db: db}
}

// LoadConfig returns the saved profile and config blob.
//
// Postcondition: Returns an empty profile and nil blob when no row exists.
func (r *LawRepository) LoadConfig(ctx context.Context) (string, []byte, error) {
	var profile, blob string
	err := r.db.QueryRow(ctx, `SELECT profile, config_yaml FROM law_config WHERE id = 1`).Scan(&profile, &blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("loading law config: %w", err)
	}
	return profile, []byte(blob), nil
}

// SaveConfig upserts the singleton config row.
func (r *LawRepository) SaveConfig(ctx context.Context, profile string, blob []byte) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO law_config (id, profile, config_yaml, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET profile = EXCLUDED.profile, config_yaml = EXCLUDED.config_yaml, updated_at = NOW()`,
		profile, string(blob),
	)
	if err != nil {
		return fmt.Errorf("saving law config: %w", err)
	}
	return nil
}

// LoadPlayers returns every ledger with its crime history, most recent first.
func (r *LawRepository) LoadPlayers(ctx context.Context) ([]*law.PlayerLawState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT player_id, wanted_level, peace_value, last_crime_time, decay_cooldown, crime_immunity
		FROM player_law_states ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("listing ledgers: %w", err)
	}
	defer rows.Close()

	states := make([]*law.PlayerLawState, 0)
	byID := make(map[uuid.UUID]*law.PlayerLawState)
	for rows.Next() {
		var s law.PlayerLawState
		if err := rows.Scan(&s.PlayerID, &s.WantedLevel, &s.PeaceValue, &s.LastCrimeTime, &s.DecayCooldown, &s.CrimeImmunity); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		states = append(states, &s)
		byID[s.PlayerID] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing ledgers: %w", err)
	}

	recs, err := r.db.Query(ctx, `
		SELECT player_id, crime_type, tick, x, y, z, region_id
		FROM crime_records ORDER BY player_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("listing crime records: %w", err)
	}
	defer recs.Close()

	for recs.Next() {
		var (
			id  uuid.UUID
			typ string
			rec law.CrimeRecord
		)
		if err := recs.Scan(&id, &typ, &rec.Timestamp, &rec.Pos.X, &rec.Pos.Y, &rec.Pos.Z, &rec.RegionID); err != nil {
			return nil, fmt.Errorf("scanning crime record: %w", err)
		}
		s, ok := byID[id]
		if !ok {
			continue
		}
		rec.Type = law.CrimeType(typ)
		s.CrimeHistory = append(s.CrimeHistory, rec)
	}
	return states, recs.Err()
}

// SavePlayers replaces the stored ledgers with states in one transaction.
//
// Postcondition: Rows for players absent from states are removed.
func (r *LawRepository) SavePlayers(ctx context.Context, states []*law.PlayerLawState) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning ledger save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]string, 0, len(states))
	batch := &pgx.Batch{}
	var records [][]any
	for _, s := range states {
		ids = append(ids, s.PlayerID.String())
		batch.Queue(`
			INSERT INTO player_law_states
				(player_id, wanted_level, peace_value, last_crime_time, decay_cooldown, crime_immunity, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (player_id) DO UPDATE
			SET wanted_level = EXCLUDED.wanted_level,
			    peace_value = EXCLUDED.peace_value,
			    last_crime_time = EXCLUDED.last_crime_time,
			    decay_cooldown = EXCLUDED.decay_cooldown,
			    crime_immunity = EXCLUDED.crime_immunity,
			    updated_at = NOW()`,
			s.PlayerID, s.WantedLevel, s.PeaceValue, s.LastCrimeTime, s.DecayCooldown, s.CrimeImmunity,
		)
		for i, rec := range s.CrimeHistory {
			records = append(records, recordRow(s.PlayerID, i, rec))
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM player_law_states WHERE NOT (player_id::text = ANY($1))`, ids); err != nil {
		return fmt.Errorf("pruning ledgers: %w", err)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting ledgers: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM crime_records`); err != nil {
		return fmt.Errorf("clearing crime records: %w", err)
	}
	if len(records) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"crime_records"},
			[]string{"player_id", "seq", "crime_type", "tick", "x", "y", "z", "region_id"},
			pgx.CopyFromRows(records),
		); err != nil {
			return fmt.Errorf("copying crime records: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing ledger save: %w", err)
	}
	return nil
}

// WantedPlayers returns the ids of stored players with a positive wanted level.
func (r *LawRepository) WantedPlayers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT player_id FROM player_law_states WHERE wanted_level > 0 ORDER BY wanted_level DESC, player_id`)
	if err != nil {
		return nil, fmt.Errorf("listing wanted players: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scanning wanted players: %w", err)
	}
	return ids, nil
}

func recordRow(id uuid.UUID, seq int, rec law.CrimeRecord) []any {
	return []any{id, int32(seq), string(rec.Type), rec.Timestamp, int32(rec.Pos.X), int32(rec.Pos.Y), int32(rec.Pos.Z), rec.RegionID}
}
