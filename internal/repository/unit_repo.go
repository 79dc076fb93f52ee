package repository

import (
	"database/sql"
	"fmt"

	"littletoes/internal/database"
	"littletoes/internal/models"
)

// UnitRepository handles database operations for curriculum units and prompts
type UnitRepository struct {
	db *database.DB
}

// NewUnitRepository creates a new unit repository
func NewUnitRepository(db *database.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// GetUnitByID retrieves a unit with its prompts in position order.
// Returns nil when the unit does not exist.
func (r *UnitRepository) GetUnitByID(unitID int64) (*models.Unit, error) {
	query := "SELECT id, title FROM units WHERE id = ?"
	unit := &models.Unit{}
	err := r.db.QueryRow(query, unitID).Scan(&unit.ID, &unit.Title)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}

	prompts, err := r.GetUnitPrompts(unitID)
	if err != nil {
		return nil, err
	}
	unit.Prompts = prompts

	return unit, nil
}

// GetAllUnits retrieves all units with their prompts, ordered by unit ID
func (r *UnitRepository) GetAllUnits() ([]models.Unit, error) {
	query := "SELECT id, title FROM units ORDER BY id"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var unit models.Unit
		if err := rows.Scan(&unit.ID, &unit.Title); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate units: %w", err)
	}

	for i := range units {
		prompts, err := r.GetUnitPrompts(units[i].ID)
		if err != nil {
			return nil, err
		}
		units[i].Prompts = prompts
	}

	return units, nil
}

// GetUnitPrompts retrieves the prompts for a unit in position order
func (r *UnitRepository) GetUnitPrompts(unitID int64) ([]models.Prompt, error) {
	query := `
		SELECT id, unit_id, position, text, hint
		FROM prompts
		WHERE unit_id = ?
		ORDER BY position
	`
	rows, err := r.db.Query(query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.Prompt
	for rows.Next() {
		var p models.Prompt
		var hint sql.NullString
		if err := rows.Scan(&p.ID, &p.UnitID, &p.Position, &p.Text, &hint); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		p.Hint = hint.String
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prompts: %w", err)
	}

	return prompts, nil
}

// CountUnits returns the number of units in the store
func (r *UnitRepository) CountUnits() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM units").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	return count, nil
}

// CreateUnit inserts a unit and its prompts inside one transaction.
// Used by seeding only; curriculum data is never mutated after startup.
func (r *UnitRepository) CreateUnit(unit models.Unit) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	unitID, err := tx.ExecReturningID(
		"INSERT INTO units (id, title) VALUES (?, ?)",
		unit.ID, unit.Title,
	)
	if err != nil {
		return fmt.Errorf("failed to create unit: %w", err)
	}
	if unit.ID != 0 {
		unitID = unit.ID
	}

	for i, prompt := range unit.Prompts {
		_, err := tx.ExecReturningID(
			"INSERT INTO prompts (unit_id, position, text, hint) VALUES (?, ?, ?, ?)",
			unitID, i+1, prompt.Text, prompt.Hint,
		)
		if err != nil {
			return fmt.Errorf("failed to create prompt: %w", err)
		}
	}

	return tx.Commit()
}
