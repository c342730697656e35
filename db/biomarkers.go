/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateBiomarker creates a biomarker, optionally with an external
// catalogue reference.
func CreateBiomarker(ctx context.Context, name string, externalRef *string) (*Biomarker, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var biomarker Biomarker

	query := `
		INSERT INTO biomarkers (name, external_ref)
		VALUES ($1, $2)
		RETURNING id, name, external_ref, created_at, updated_at
	`

	err := pool.QueryRow(ctx, query, name, externalRef).Scan(
		&biomarker.ID, &biomarker.Name, &biomarker.ExternalRef,
		&biomarker.CreatedAt, &biomarker.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create biomarker: %w", err)
	}

	return &biomarker, nil
}

// GetBiomarker returns a single biomarker by ID
func GetBiomarker(ctx context.Context, id string) (*Biomarker, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var biomarker Biomarker

	query := `
		SELECT id, name, external_ref, created_at, updated_at
		FROM biomarkers
		WHERE id = $1
	`

	err := pool.QueryRow(ctx, query, id).Scan(
		&biomarker.ID, &biomarker.Name, &biomarker.ExternalRef,
		&biomarker.CreatedAt, &biomarker.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBiomarkerNotFound
		}

		return nil, fmt.Errorf("failed to get biomarker: %w", err)
	}

	return &biomarker, nil
}

// AddSynonym registers an alternate name for a biomarker.
func AddSynonym(ctx context.Context, biomarkerID uuid.UUID, name, language string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	query := `
		INSERT INTO synonyms (biomarker_id, name, language)
		VALUES ($1, $2, $3)
	`

	if _, err := pool.Exec(ctx, query, biomarkerID, name, language); err != nil {
		return fmt.Errorf("failed to add synonym: %w", err)
	}

	return nil
}

// CreateUnit creates a measurement unit.
func CreateUnit(ctx context.Context, name string, valueType int) (*Unit, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var unit Unit

	query := `
		INSERT INTO units (name, value_type)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value_type = EXCLUDED.value_type
		RETURNING id, name, value_type, created_at
	`

	err := pool.QueryRow(ctx, query, name, valueType).Scan(
		&unit.ID, &unit.Name, &unit.ValueType, &unit.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}

	return &unit, nil
}

// SetUnitFactor sets the conversion factor from a biomarker's stored
// values to the given unit.
func SetUnitFactor(ctx context.Context, biomarkerID, unitID uuid.UUID, factor float64) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	query := `
		INSERT INTO unit_factors (biomarker_id, unit_id, factor)
		VALUES ($1, $2, $3)
		ON CONFLICT (biomarker_id, unit_id) DO UPDATE SET factor = EXCLUDED.factor
	`

	if _, err := pool.Exec(ctx, query, biomarkerID, unitID, factor); err != nil {
		return fmt.Errorf("failed to set unit factor: %w", err)
	}

	return nil
}

// UpsertBiomarkerRange inserts a new versioned range row. Existing rows
// for the same (biomarker, gender, age) are kept; lookups take the most
// recently updated one.
func UpsertBiomarkerRange(ctx context.Context, r BiomarkerRange) (*BiomarkerRange, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var out BiomarkerRange

	query := `
		INSERT INTO biomarker_ranges (biomarker_id, gender, age, possible_min_value, possible_max_value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, biomarker_id, gender, age, possible_min_value, possible_max_value, created_at, updated_at
	`

	err := pool.QueryRow(ctx, query, r.BiomarkerID, r.Gender, r.Age, r.PossibleMinValue, r.PossibleMaxValue).Scan(
		&out.ID, &out.BiomarkerID, &out.Gender, &out.Age,
		&out.PossibleMinValue, &out.PossibleMaxValue,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert biomarker range: %w", err)
	}

	return &out, nil
}

// getLatestRange returns the most recently updated range for the exact
// (biomarker, gender, age) key, or nil when none exists.
func getLatestRange(ctx context.Context, q querier, biomarkerID uuid.UUID, gender Gender, age int) (*BiomarkerRange, error) {
	var r BiomarkerRange

	query := `
		SELECT id, biomarker_id, gender, age, possible_min_value, possible_max_value, created_at, updated_at
		FROM biomarker_ranges
		WHERE biomarker_id = $1 AND gender = $2 AND age = $3
		ORDER BY updated_at DESC
		LIMIT 1
	`

	err := q.QueryRow(ctx, query, biomarkerID, gender, age).Scan(
		&r.ID, &r.BiomarkerID, &r.Gender, &r.Age,
		&r.PossibleMinValue, &r.PossibleMaxValue,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // no range registered is a valid state
		}

		return nil, fmt.Errorf("failed to look up biomarker range: %w", err)
	}

	return &r, nil
}
