/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RootLabelName anchors the section taxonomy: a label groups biomarkers
// into a section only when it is a direct child of this label.
const RootLabelName = "Biomarcador"

// FallbackSectionName collects biomarkers with no section label.
const FallbackSectionName = "Outros Biomarcadores"

// DefaultSectionOrder is the section order used when the caller does
// not supply one.
var DefaultSectionOrder = []string{
	"Hemograma",
	"Lipídeos",
	"Glicose e Metabolismo dos carboidratos",
	"Estudos hormonais",
}

// BiomarkerSection is a named group of panel snapshots.
type BiomarkerSection struct {
	Name      string
	Snapshots []BiomarkerSnapshot
}

// PrimaryLabelsForBiomarkers resolves each biomarker's section label:
// its earliest-assigned label that is a direct child of the root
// taxonomy label. One query for the whole set.
func PrimaryLabelsForBiomarkers(ctx context.Context, biomarkerIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	if len(biomarkerIDs) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	query := `
		SELECT DISTINCT ON (la.biomarker_id) la.biomarker_id, l.name
		FROM label_assignments la
		JOIN labels l ON l.id = la.label_id
		JOIN label_relationships lr ON lr.child_label_id = l.id
		JOIN labels root ON root.id = lr.parent_label_id AND root.name = $2
		WHERE la.biomarker_id = ANY($1)
		ORDER BY la.biomarker_id, la.created_at ASC
	`

	rows, err := pool.Query(ctx, query, biomarkerIDs, RootLabelName)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[uuid.UUID]string)

	for rows.Next() {
		var (
			id   uuid.UUID
			name string
		)

		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan primary label: %w", err)
		}

		labels[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary labels: %w", err)
	}

	return labels, nil
}

// BuildSections partitions panel snapshots into named sections. Each
// snapshot lands in the section named by its biomarker's primary label;
// snapshots without one land in the trailing fallback section. Sections
// appear in the requested order, then any remaining labels in first-seen
// order, then the fallback. Empty sections are omitted. The input order
// of snapshots is preserved within each section.
func BuildSections(snapshots []BiomarkerSnapshot, primaryLabels map[uuid.UUID]string, order []string) []BiomarkerSection {
	if len(order) == 0 {
		order = DefaultSectionOrder
	}

	grouped := make(map[string][]BiomarkerSnapshot)

	var (
		seen  []string
		other []BiomarkerSnapshot
	)

	for _, snap := range snapshots {
		label, ok := primaryLabels[snap.BiomarkerID]
		if !ok {
			other = append(other, snap)
			continue
		}

		if _, exists := grouped[label]; !exists {
			seen = append(seen, label)
		}

		grouped[label] = append(grouped[label], snap)
	}

	var sections []BiomarkerSection

	emitted := make(map[string]bool)

	for _, name := range order {
		if snaps := grouped[name]; len(snaps) > 0 {
			sections = append(sections, BiomarkerSection{Name: name, Snapshots: snaps})
			emitted[name] = true
		}
	}

	for _, name := range seen {
		if !emitted[name] {
			sections = append(sections, BiomarkerSection{Name: name, Snapshots: grouped[name]})
		}
	}

	if len(other) > 0 {
		sections = append(sections, BiomarkerSection{Name: FallbackSectionName, Snapshots: other})
	}

	return sections
}

// QuerySectionedPanel runs a panel query and groups the result into
// sections in one call.
func QuerySectionedPanel(ctx context.Context, input QueryPanelInput, order []string) ([]BiomarkerSection, error) {
	snapshots, err := QueryBiomarkerPanel(ctx, input)
	if err != nil {
		return nil, err
	}

	if len(snapshots) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(snapshots))
	for _, snap := range snapshots {
		ids = append(ids, snap.BiomarkerID)
	}

	primaryLabels, err := PrimaryLabelsForBiomarkers(ctx, ids)
	if err != nil {
		return nil, err
	}

	return BuildSections(snapshots, primaryLabels, order), nil
}
