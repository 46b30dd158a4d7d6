package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cty/cty"
	"github.com/roach88/cty/cty/wire"
)

// Snapshot is one stored value.
type Snapshot struct {
	ID       string
	Name     string
	Type     cty.Type
	TypeHash string
	Version  int64
	Value    cty.Value
}

// Entry describes a snapshot without decoding its payload.
type Entry struct {
	ID       string
	Name     string
	TypeJSON string
	TypeHash string
	Version  int64
	Size     int
}

// ErrCorrupt is returned by Get when a payload does not match its
// fingerprint.
var ErrCorrupt = errors.New("snapshot payload does not match its fingerprint")

// Put stores v under name, replacing any snapshot of that name. The value is
// encoded against its own type, so it must be representable on the wire:
// unrefined unknowns and capsules are rejected.
func (s *Store) Put(ctx context.Context, name string, v cty.Value) (Snapshot, error) {
	if name == "" {
		return Snapshot{}, fmt.Errorf("put: name must not be empty")
	}
	if v.Type() == nil {
		return Snapshot{}, fmt.Errorf("put %q: value must not be NilVal", name)
	}
	t := v.Type()

	typeJSON, err := cty.MarshalTypeJSON(t)
	if err != nil {
		return Snapshot{}, fmt.Errorf("put %q: %w", name, err)
	}
	payload, err := wire.Marshal(v, t)
	if err != nil {
		return Snapshot{}, fmt.Errorf("put %q: %w", name, err)
	}
	typeHash := hashWithDomain(DomainType, typeJSON)
	id, err := s.ids.NewID()
	if err != nil {
		return Snapshot{}, fmt.Errorf("put %q: generate id: %w", name, err)
	}

	// ON CONFLICT keeps the original id and bumps the version.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, type_json, type_hash, payload, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			type_json = excluded.type_json,
			type_hash = excluded.type_hash,
			payload = excluded.payload,
			payload_hash = excluded.payload_hash,
			version = snapshots.version + 1
	`,
		id,
		name,
		string(typeJSON),
		typeHash,
		payload,
		payloadFingerprint(typeJSON, payload),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("put %q: %w", name, err)
	}

	var snap Snapshot
	if err := s.db.QueryRowContext(ctx,
		`SELECT id, version FROM snapshots WHERE name = ?`, name,
	).Scan(&snap.ID, &snap.Version); err != nil {
		return Snapshot{}, fmt.Errorf("put %q: %w", name, err)
	}
	snap.Name = name
	snap.Type = t
	snap.TypeHash = typeHash
	snap.Value = v

	s.logger.Debug("snapshot stored",
		"name", name,
		"id", snap.ID,
		"version", snap.Version,
		"bytes", len(payload),
		"event", "snapshot_put",
	)
	return snap, nil
}

// Get loads and decodes the snapshot stored under name.
// Returns an error wrapping sql.ErrNoRows if there is none.
func (s *Store) Get(ctx context.Context, name string) (Snapshot, error) {
	var (
		snap        Snapshot
		typeJSON    string
		payload     []byte
		payloadHash string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type_json, type_hash, payload, payload_hash, version
		FROM snapshots
		WHERE name = ?
	`, name).Scan(&snap.ID, &snap.Name, &typeJSON, &snap.TypeHash, &payload, &payloadHash, &snap.Version)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %q: %w", name, err)
	}

	if payloadFingerprint([]byte(typeJSON), payload) != payloadHash {
		return Snapshot{}, fmt.Errorf("get %q: %w", name, ErrCorrupt)
	}
	t, err := cty.ParseTypeJSON([]byte(typeJSON))
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %q: type: %w", name, err)
	}
	v, err := wire.Unmarshal(payload, t)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %q: %w", name, err)
	}
	snap.Type = t
	snap.Value = v
	return snap, nil
}

// List returns every snapshot, ordered by name.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, `
		SELECT id, name, type_json, type_hash, version, length(payload)
		FROM snapshots
		ORDER BY name COLLATE BINARY ASC
	`)
}

// FindByType returns the snapshots whose type equals t, ordered by name.
func (s *Store) FindByType(ctx context.Context, t cty.Type) ([]Entry, error) {
	fp, err := TypeFingerprint(t)
	if err != nil {
		return nil, err
	}
	return s.queryEntries(ctx, `
		SELECT id, name, type_json, type_hash, version, length(payload)
		FROM snapshots
		WHERE type_hash = ?
		ORDER BY name COLLATE BINARY ASC
	`, fp)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.TypeJSON, &e.TypeHash, &e.Version, &e.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return entries, nil
}

// Delete removes the snapshot stored under name.
// Returns an error wrapping sql.ErrNoRows if there is none.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %q: %w", name, sql.ErrNoRows)
	}
	s.logger.Debug("snapshot deleted", "name", name, "event", "snapshot_delete")
	return nil
}
