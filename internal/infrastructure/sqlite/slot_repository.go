package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/povtrack/internal/log"
	"github.com/zjrosen/povtrack/internal/workflow"
)

// SlotRepository implements workflow.SlotStore on the workflow_slots table.
// One row per slot key, payload replaced wholesale on every save.
type SlotRepository struct {
	db  *sql.DB
	now func() time.Time
}

func newSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db, now: time.Now}
}

var _ workflow.SlotStore = (*SlotRepository)(nil)

// Load returns the raw payload for key, or workflow.ErrSlotNotFound when the
// slot has never been written.
func (r *SlotRepository) Load(key string) ([]byte, error) {
	var payload string
	err := r.db.QueryRow(
		"SELECT payload FROM workflow_slots WHERE slot_key = ?", key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workflow.ErrSlotNotFound
	}
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to load workflow slot", err, "key", key)
		return nil, fmt.Errorf("loading slot %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Save writes the payload for key, replacing any prior value.
func (r *SlotRepository) Save(key string, payload []byte) error {
	_, err := r.db.Exec(`
		INSERT INTO workflow_slots (slot_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slot_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		key, string(payload), r.now().Unix(),
	)
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to save workflow slot", err, "key", key)
		return fmt.Errorf("saving slot %s: %w", key, err)
	}
	return nil
}

// Clear removes the slot for key. Clearing an absent slot is not an error.
func (r *SlotRepository) Clear(key string) error {
	if _, err := r.db.Exec("DELETE FROM workflow_slots WHERE slot_key = ?", key); err != nil {
		log.ErrorErr(log.CatDB, "Failed to clear workflow slot", err, "key", key)
		return fmt.Errorf("clearing slot %s: %w", key, err)
	}
	return nil
}

// UpdatedAt reports when the slot was last written, for staleness display.
func (r *SlotRepository) UpdatedAt(key string) (time.Time, error) {
	var unix int64
	err := r.db.QueryRow(
		"SELECT updated_at FROM workflow_slots WHERE slot_key = ?", key,
	).Scan(&unix)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, workflow.ErrSlotNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading slot timestamp %s: %w", key, err)
	}
	return time.Unix(unix, 0), nil
}
