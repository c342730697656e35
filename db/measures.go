/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateMeasureInput contains parameters for recording a measurement
type CreateMeasureInput struct {
	BiomarkerID uuid.UUID
	SourceID    uuid.UUID
	UnitID      *uuid.UUID
	Value       float64
	Date        time.Time
}

// CreateMeasure records a measurement and reconciles its filter row in
// the same transaction. A reconciliation failure rolls the measurement
// back; the two never diverge.
func CreateMeasure(ctx context.Context, input CreateMeasureInput) (*Measure, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var measure Measure

	err := withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO measures (biomarker_id, source_id, unit_id, value, date)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, biomarker_id, source_id, unit_id, value, date, created_at, updated_at
		`

		err := tx.QueryRow(ctx, query,
			input.BiomarkerID, input.SourceID, input.UnitID, input.Value, input.Date,
		).Scan(
			&measure.ID, &measure.BiomarkerID, &measure.SourceID, &measure.UnitID,
			&measure.Value, &measure.Date, &measure.CreatedAt, &measure.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create measure: %w", err)
		}

		return reconcileInTx(ctx, tx, &measure, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	return &measure, nil
}

// UpdateMeasure changes a measurement's value and date, reconciling in
// the same transaction.
func UpdateMeasure(ctx context.Context, id string, value float64, date time.Time) (*Measure, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var measure Measure

	err := withTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE measures
			SET value = $2, date = $3, updated_at = now()
			WHERE id = $1
			RETURNING id, biomarker_id, source_id, unit_id, value, date, created_at, updated_at
		`

		err := tx.QueryRow(ctx, query, id, value, date).Scan(
			&measure.ID, &measure.BiomarkerID, &measure.SourceID, &measure.UnitID,
			&measure.Value, &measure.Date, &measure.CreatedAt, &measure.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMeasureNotFound
			}

			return fmt.Errorf("failed to update measure: %w", err)
		}

		return reconcileInTx(ctx, tx, &measure, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	return &measure, nil
}

// DeleteMeasure removes a measurement, drops any filter row it
// represents and repairs the filter from the next most recent surviving
// measure of the same human and biomarker, all in one transaction.
func DeleteMeasure(ctx context.Context, id string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	return withTx(ctx, func(tx pgx.Tx) error {
		measure, err := getMeasureTx(ctx, tx, id)
		if err != nil {
			return err
		}

		return deleteMeasureInTx(ctx, tx, measure, nil)
	})
}

// deleteMeasureInTx is the shared per-measure delete path used by both
// single deletes and source cascades.
func deleteMeasureInTx(ctx context.Context, tx pgx.Tx, measure *Measure, delCtx DeletionContext) error {
	humanID, err := humanIDForSource(ctx, tx, measure.SourceID)
	if err != nil {
		return err
	}

	if err := deleteFiltersForMeasure(ctx, tx, measure); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM measures WHERE id = $1`, measure.ID); err != nil {
		return fmt.Errorf("failed to delete measure: %w", err)
	}

	if humanID == nil {
		// Orphaned source reference; nothing left to repair.
		return nil
	}

	next, err := nextSurvivingMeasure(ctx, tx, *humanID, measure.BiomarkerID)
	if err != nil {
		return &FilterConsistencyError{Op: "find surviving measure", Err: err}
	}

	if next == nil {
		return nil
	}

	// The deleted measure rides along as a hint: it was more recent
	// than the survivor, and its source may be mid-delete.
	return reconcileInTx(ctx, tx, next, measure, delCtx)
}

// GetMeasure returns a single measure by ID
func GetMeasure(ctx context.Context, id string) (*Measure, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	return getMeasure(ctx, pool, id)
}

func getMeasureTx(ctx context.Context, tx pgx.Tx, id string) (*Measure, error) {
	return getMeasure(ctx, tx, id)
}

func getMeasure(ctx context.Context, q querier, id string) (*Measure, error) {
	var measure Measure

	query := `
		SELECT id, biomarker_id, source_id, unit_id, value, date, created_at, updated_at
		FROM measures
		WHERE id = $1
	`

	err := q.QueryRow(ctx, query, id).Scan(
		&measure.ID, &measure.BiomarkerID, &measure.SourceID, &measure.UnitID,
		&measure.Value, &measure.Date, &measure.CreatedAt, &measure.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeasureNotFound
		}

		return nil, fmt.Errorf("failed to get measure: %w", err)
	}

	return &measure, nil
}

// ListMeasuresBySource returns a source's measures oldest first.
func ListMeasuresBySource(ctx context.Context, sourceID uuid.UUID) ([]Measure, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	return listMeasuresBySource(ctx, pool, sourceID)
}

func listMeasuresBySource(ctx context.Context, q querier, sourceID uuid.UUID) ([]Measure, error) {
	query := `
		SELECT id, biomarker_id, source_id, unit_id, value, date, created_at, updated_at
		FROM measures
		WHERE source_id = $1
		ORDER BY created_at ASC
	`

	rows, err := q.Query(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list measures: %w", err)
	}
	defer rows.Close()

	var measures []Measure

	for rows.Next() {
		var m Measure
		if err := rows.Scan(
			&m.ID, &m.BiomarkerID, &m.SourceID, &m.UnitID,
			&m.Value, &m.Date, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan measure: %w", err)
		}

		measures = append(measures, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating measures: %w", err)
	}

	return measures, nil
}

// humanIDForSource resolves a source to its human, nil when the source
// row is gone.
func humanIDForSource(ctx context.Context, q querier, sourceID uuid.UUID) (*uuid.UUID, error) {
	var humanID uuid.UUID

	err := q.QueryRow(ctx, `SELECT human_id FROM sources WHERE id = $1`, sourceID).Scan(&humanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // dangling source reference
		}

		return nil, fmt.Errorf("failed to resolve source human: %w", err)
	}

	return &humanID, nil
}
