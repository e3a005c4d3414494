// Package lawfile persists the law config and player ledgers as plain files:
// a YAML config document and a zstd-compressed JSON ledger snapshot.
package lawfile

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/enforcer/internal/law"
)

// File names inside the data directory.
const (
	ConfigFile  = "law_system_config.yaml"
	PlayersFile = "law_system_players.json.zst"
)

// playersVersion is bumped when the ledger snapshot layout changes.
const playersVersion = 1

type configDoc struct {
	Profile string    `yaml:"profile"`
	SavedAt time.Time `yaml:"saved_at"`
	Config  string    `yaml:"config"`
}

type playersHeader struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Count   int       `json:"count"`
}

// Store reads and writes law state under one directory.
type Store struct {
	dir string
	now func() time.Time
}

// New creates a Store rooted at dir, creating the directory if needed.
//
// Precondition: dir must be non-empty.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("lawfile: empty data directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// LoadConfig returns the saved profile and config blob. A missing file
// yields an empty profile and nil blob.
func (s *Store) LoadConfig(_ context.Context) (string, []byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ConfigFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("reading law config: %w", err)
	}
	var doc configDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
	}
	if doc.Config == "" {
		return doc.Profile, nil, nil
	}
	return doc.Profile, []byte(doc.Config), nil
}

// SaveConfig writes the profile and blob.
func (s *Store) SaveConfig(_ context.Context, profile string, blob []byte) error {
	data, err := yaml.Marshal(configDoc{Profile: profile, SavedAt: s.now().UTC(), Config: string(blob)})
	if err != nil {
		return fmt.Errorf("encoding law config: %w", err)
	}
	return s.writeAtomic(ConfigFile, func(w *bufio.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// LoadPlayers returns every saved ledger. A missing file yields none.
func (s *Store) LoadPlayers(_ context.Context) ([]*law.PlayerLawState, error) {
	f, err := os.Open(filepath.Join(s.dir, PlayersFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledgers: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening ledger stream: %w", err)
	}
	defer zr.Close()

	dec := json.NewDecoder(bufio.NewReader(zr))
	var hdr playersHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("decoding ledger header: %w", err)
	}
	if hdr.Version != playersVersion {
		return nil, fmt.Errorf("unsupported ledger version %d", hdr.Version)
	}
	states := make([]*law.PlayerLawState, 0, hdr.Count)
	for range hdr.Count {
		var st law.PlayerLawState
		if err := dec.Decode(&st); err != nil {
			return nil, fmt.Errorf("decoding ledger %d: %w", len(states), err)
		}
		states = append(states, &st)
	}
	return states, nil
}

// SavePlayers replaces the ledger snapshot with states.
func (s *Store) SavePlayers(_ context.Context, states []*law.PlayerLawState) error {
	return s.writeAtomic(PlayersFile, func(w *bufio.Writer) error {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(zw)
		if err := enc.Encode(playersHeader{Version: playersVersion, SavedAt: s.now().UTC(), Count: len(states)}); err != nil {
			zw.Close()
			return err
		}
		for _, st := range states {
			if err := enc.Encode(st); err != nil {
				zw.Close()
				return fmt.Errorf("encoding ledger %s: %w", st.PlayerID, err)
			}
		}
		return zw.Close()
	})
}

// writeAtomic writes name through a temp file renamed into place.
func (s *Store) writeAtomic(name string, write func(*bufio.Writer) error) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if err := write(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
