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

// CreateLabel creates a taxonomy label, returning the existing one when
// the name is already taken.
func CreateLabel(ctx context.Context, name string) (*Label, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var label Label

	query := `
		INSERT INTO labels (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`

	err := pool.QueryRow(ctx, query, name).Scan(&label.ID, &label.Name, &label.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create label: %w", err)
	}

	return &label, nil
}

// GetLabelByName returns a label, or nil when it does not exist.
func GetLabelByName(ctx context.Context, name string) (*Label, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var label Label

	query := `SELECT id, name, created_at FROM labels WHERE name = $1`

	err := pool.QueryRow(ctx, query, name).Scan(&label.ID, &label.Name, &label.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // absent label is a valid lookup result
		}

		return nil, fmt.Errorf("failed to get label: %w", err)
	}

	return &label, nil
}

// LinkLabels makes child a direct child of parent in the taxonomy.
func LinkLabels(ctx context.Context, parentID, childID uuid.UUID) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	query := `
		INSERT INTO label_relationships (parent_label_id, child_label_id)
		VALUES ($1, $2)
		ON CONFLICT (parent_label_id, child_label_id) DO NOTHING
	`

	if _, err := pool.Exec(ctx, query, parentID, childID); err != nil {
		return fmt.Errorf("failed to link labels: %w", err)
	}

	return nil
}

// AssignLabel attaches a label to a biomarker.
func AssignLabel(ctx context.Context, labelID, biomarkerID uuid.UUID) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	query := `
		INSERT INTO label_assignments (label_id, biomarker_id)
		VALUES ($1, $2)
		ON CONFLICT (label_id, biomarker_id) DO NOTHING
	`

	if _, err := pool.Exec(ctx, query, labelID, biomarkerID); err != nil {
		return fmt.Errorf("failed to assign label: %w", err)
	}

	return nil
}

// SyncLabelTaxonomy upserts the root label and the default section
// labels beneath it. Called after migrations on every startup.
func SyncLabelTaxonomy(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	root, err := CreateLabel(ctx, RootLabelName)
	if err != nil {
		return err
	}

	for _, name := range DefaultSectionOrder {
		label, err := CreateLabel(ctx, name)
		if err != nil {
			return err
		}

		if err := LinkLabels(ctx, root.ID, label.ID); err != nil {
			return err
		}
	}

	logger.Debug("Synced label taxonomy", "sections", len(DefaultSectionOrder))

	return nil
}
