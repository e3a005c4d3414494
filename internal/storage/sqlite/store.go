// Package sqlite provides an embedded SQLite law store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/enforcer/internal/law"
)

//go:embed schema.sql
var schema string

// Store persists the law config and player ledgers in one SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
//
// Precondition: path must be non-empty.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadConfig returns the saved profile and blob, or empty values when none exist.
func (s *Store) LoadConfig(ctx context.Context) (string, []byte, error) {
	var profile, blob string
	err := s.db.QueryRowContext(ctx, `SELECT profile, config_yaml FROM law_config WHERE id = 1`).Scan(&profile, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("loading law config: %w", err)
	}
	return profile, []byte(blob), nil
}

// SaveConfig upserts the singleton config row.
func (s *Store) SaveConfig(ctx context.Context, profile string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO law_config (id, profile, config_yaml, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		  profile = excluded.profile,
		  config_yaml = excluded.config_yaml,
		  updated_at = excluded.updated_at`,
		profile, string(blob), s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving law config: %w", err)
	}
	return nil
}

// LoadPlayers returns every ledger with its crime history, most recent first.
func (s *Store) LoadPlayers(ctx context.Context) ([]*law.PlayerLawState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, wanted_level, peace_value, last_crime_time, decay_cooldown, crime_immunity
		FROM player_law_states ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("listing ledgers: %w", err)
	}
	defer rows.Close()

	states := make([]*law.PlayerLawState, 0)
	byID := make(map[string]*law.PlayerLawState)
	for rows.Next() {
		var (
			id string
			st law.PlayerLawState
		)
		if err := rows.Scan(&id, &st.WantedLevel, &st.PeaceValue, &st.LastCrimeTime, &st.DecayCooldown, &st.CrimeImmunity); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		if st.PlayerID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("ledger %q: %w", id, err)
		}
		states = append(states, &st)
		byID[id] = &st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing ledgers: %w", err)
	}

	recs, err := s.db.QueryContext(ctx, `
		SELECT player_id, crime_type, tick, x, y, z, region_id
		FROM crime_records ORDER BY player_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("listing crime records: %w", err)
	}
	defer recs.Close()
	for recs.Next() {
		var (
			id, typ string
			rec     law.CrimeRecord
		)
		if err := recs.Scan(&id, &typ, &rec.Timestamp, &rec.Pos.X, &rec.Pos.Y, &rec.Pos.Z, &rec.RegionID); err != nil {
			return nil, fmt.Errorf("scanning crime record: %w", err)
		}
		if st, ok := byID[id]; ok {
			rec.Type = law.CrimeType(typ)
			st.CrimeHistory = append(st.CrimeHistory, rec)
		}
	}
	return states, recs.Err()
}

// SavePlayers replaces the stored ledgers with states in one transaction.
func (s *Store) SavePlayers(ctx context.Context, states []*law.PlayerLawState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM crime_records`); err != nil {
		return fmt.Errorf("clearing crime records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_law_states`); err != nil {
		return fmt.Errorf("clearing ledgers: %w", err)
	}

	insState, err := tx.PrepareContext(ctx, `
		INSERT INTO player_law_states
		  (player_id, wanted_level, peace_value, last_crime_time, decay_cooldown, crime_immunity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing ledger insert: %w", err)
	}
	defer insState.Close()
	insRecord, err := tx.PrepareContext(ctx, `
		INSERT INTO crime_records (player_id, seq, crime_type, tick, x, y, z, region_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing crime record insert: %w", err)
	}
	defer insRecord.Close()

	now := s.now().UTC().UnixMilli()
	for _, st := range states {
		id := st.PlayerID.String()
		if _, err := insState.ExecContext(ctx, id, st.WantedLevel, st.PeaceValue, st.LastCrimeTime, st.DecayCooldown, st.CrimeImmunity, now); err != nil {
			return fmt.Errorf("inserting ledger %s: %w", id, err)
		}
		for i, rec := range st.CrimeHistory {
			if _, err := insRecord.ExecContext(ctx, id, i, string(rec.Type), rec.Timestamp, rec.Pos.X, rec.Pos.Y, rec.Pos.Z, rec.RegionID); err != nil {
				return fmt.Errorf("inserting crime record %s/%d: %w", id, i, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger save: %w", err)
	}
	return nil
}
