// ABOUTME: Profile persistence for SQLite storage.
// ABOUTME: A single-row table holding the profile as a JSON payload.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/healthlog/internal/models"
)

// GetProfile returns the stored profile.
func (d *DB) GetProfile() (*models.Profile, error) {
	var payload string
	err := d.db.QueryRow(`SELECT payload FROM profile WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get profile: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, nil
}

// SaveProfile replaces the stored profile.
func (d *DB) SaveProfile(p *models.Profile) error {
	if err := models.ValidateDefinition(p); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = d.db.Exec(`
		INSERT INTO profile (id, payload) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
	`, string(payload))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
