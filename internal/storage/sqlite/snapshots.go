package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/relax"
)

// Snapshot is a stored design.
type Snapshot struct {
	ID          string         `json:"snapshot_id"`
	Name        string         `json:"name"`
	HelixCount  int            `json:"helix_count"`
	StrandCount int            `json:"strand_count"`
	CreatedAt   time.Time      `json:"created_at"`
	Design      *design.Design `json:"-"`
}

// Run is the record of one relaxation.
type Run struct {
	ID              string           `json:"run_id"`
	SnapshotID      string           `json:"snapshot_id,omitempty"`
	Granularity     string           `json:"granularity"`
	Seed            uint64           `json:"seed"`
	StericWeight    float64          `json:"steric_weight"`
	CrossoverWeight float64          `json:"crossover_weight"`
	InitialStrain   float64          `json:"initial_strain"`
	FinalStrain     float64          `json:"final_strain"`
	Steps           int              `json:"steps"`
	Converged       bool             `json:"converged"`
	StopReason      relax.StopReason `json:"stop_reason"`
	History         []float64        `json:"history,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// RunFromResult builds the record of a finished relaxation.
func RunFromResult(snapshotID string, cfg relax.Config, res *relax.Result) Run {
	return Run{
		SnapshotID:      snapshotID,
		Granularity:     cfg.Granularity.String(),
		Seed:            cfg.Seed,
		StericWeight:    cfg.StericWeight,
		CrossoverWeight: cfg.CrossoverWeight,
		InitialStrain:   res.InitialStrain,
		FinalStrain:     res.FinalStrain,
		Steps:           res.Steps,
		Converged:       res.Converged,
		StopReason:      res.StopReason,
		History:         res.History,
	}
}

// SaveSnapshot stores d under name and returns the new snapshot.
func (s *Store) SaveSnapshot(name string, d *design.Design) (*Snapshot, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode design: %w", err)
	}
	snap := &Snapshot{
		ID:          uuid.New().String(),
		Name:        name,
		HelixCount:  len(d.Helices),
		StrandCount: len(d.Strands),
		CreatedAt:   s.clock.Now(),
	}
	_, err := s.db.Exec(`
		INSERT INTO design_snapshots (
			snapshot_id, name, helix_count, strand_count, design_json, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.HelixCount, snap.StrandCount, buf.String(), snap.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	monitoring.Logf("[store] saved snapshot %s (%q, %d helices)", snap.ID, name, snap.HelixCount)
	return snap, nil
}

// GetSnapshot loads a snapshot with its design.
func (s *Store) GetSnapshot(id string) (*Snapshot, error) {
	var snap Snapshot
	var body string
	var createdNs int64
	err := s.db.QueryRow(`
		SELECT snapshot_id, name, helix_count, strand_count, design_json, created_at_ns
		FROM design_snapshots
		WHERE snapshot_id = ?`, id,
	).Scan(&snap.ID, &snap.Name, &snap.HelixCount, &snap.StrandCount, &body, &createdNs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	snap.CreatedAt = time.Unix(0, createdNs)
	d, err := design.Decode(bytes.NewBufferString(body))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	snap.Design = d
	return &snap, nil
}

// ListSnapshots returns all snapshots, newest first, without their designs.
func (s *Store) ListSnapshots() ([]*Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT snapshot_id, name, helix_count, strand_count, created_at_ns
		FROM design_snapshots
		ORDER BY created_at_ns DESC, snapshot_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var snap Snapshot
		var createdNs int64
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.HelixCount, &snap.StrandCount, &createdNs); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.CreatedAt = time.Unix(0, createdNs)
		out = append(out, &snap)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a snapshot and its runs.
func (s *Store) DeleteSnapshot(id string) error {
	res, err := s.db.Exec(`DELETE FROM design_snapshots WHERE snapshot_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecordRun stores a relaxation run. An empty run.ID is filled with a new
// UUID; run.SnapshotID may be empty for runs on unsaved designs.
func (s *Store) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now()
	}
	var history sql.NullString
	if len(run.History) > 0 {
		b, err := json.Marshal(run.History)
		if err != nil {
			return fmt.Errorf("marshal history: %w", err)
		}
		history = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO relax_runs (
			run_id, snapshot_id, granularity, seed, steric_weight, crossover_weight,
			initial_strain, final_strain, steps, converged, stop_reason,
			history_json, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, nullString(run.SnapshotID), run.Granularity, int64(run.Seed),
		run.StericWeight, run.CrossoverWeight, run.InitialStrain, run.FinalStrain,
		run.Steps, run.Converged, string(run.StopReason), history, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns the runs of a snapshot, oldest first. An empty
// snapshotID lists every run.
func (s *Store) ListRuns(snapshotID string) ([]*Run, error) {
	query := `
		SELECT run_id, snapshot_id, granularity, seed, steric_weight, crossover_weight,
		       initial_strain, final_strain, steps, converged, stop_reason,
		       history_json, created_at_ns
		FROM relax_runs`
	var args []interface{}
	if snapshotID != "" {
		query += ` WHERE snapshot_id = ?`
		args = append(args, snapshotID)
	}
	query += ` ORDER BY created_at_ns, run_id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var run Run
		var snap, history sql.NullString
		var seed, createdNs int64
		var reason string
		err := rows.Scan(&run.ID, &snap, &run.Granularity, &seed, &run.StericWeight, &run.CrossoverWeight,
			&run.InitialStrain, &run.FinalStrain, &run.Steps, &run.Converged, &reason,
			&history, &createdNs)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		run.SnapshotID = snap.String
		run.Seed = uint64(seed)
		run.StopReason = relax.StopReason(reason)
		run.CreatedAt = time.Unix(0, createdNs)
		if history.Valid && history.String != "" {
			if err := json.Unmarshal([]byte(history.String), &run.History); err != nil {
				return nil, fmt.Errorf("decode history of run %s: %w", run.ID, err)
			}
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
