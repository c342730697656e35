/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MeasureStatus is the traffic-light rendering of a snapshot.
const (
	MeasureStatusGreen  = "green"
	MeasureStatusYellow = "yellow"
)

// Categorical value renderings.
const (
	MeasureTextPositive = "Positivo"
	MeasureTextNegative = "Negativo"
)

// PanelPredicates are the conjunctive filter conditions of a panel
// query. Every enabled predicate must hold for a biomarker to appear.
type PanelPredicates struct {
	OutOfRange     bool
	FromLatestExam bool
}

// QueryPanelInput contains parameters for querying a biomarker panel
type QueryPanelInput struct {
	HumanID     uuid.UUID
	SourceTypes []string // seeded source type names; empty means all
	Predicates  *PanelPredicates
	Search      string
}

// BiomarkerSnapshot is one row of a biomarker panel: the latest measure
// for a biomarker with its display name, converted value and range.
type BiomarkerSnapshot struct {
	BiomarkerID   uuid.UUID
	Name          string
	DisplayName   string
	MeasureID     uuid.UUID
	Value         float64
	UnitName      *string
	ValueType     int
	Date          time.Time
	SourceType    string
	RangeMin      *float64
	RangeMax      *float64
	RangeStatus   RangeStatus
	MeasureStatus string
	MeasureText   string
}

// QueryBiomarkerPanel returns the human's biomarker panel. Without
// predicates it shows the latest measure of every biomarker within the
// requested source types; with predicates it first narrows to the
// biomarkers whose filter rows satisfy every enabled condition. Search
// terms match name and synonyms, accent- and case-insensitively, each
// term as a prefix, all terms required. Rows come back ordered by
// display name under Portuguese collation.
func QueryBiomarkerPanel(ctx context.Context, input QueryPanelInput) ([]BiomarkerSnapshot, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	sourceTypes := input.SourceTypes
	if len(sourceTypes) == 0 {
		sourceTypes = sourceTypeNames
	}

	var biomarkerIDs []uuid.UUID

	if input.Predicates != nil {
		ids, err := filteredBiomarkerIDs(ctx, input.HumanID, sourceTypes, *input.Predicates)
		if err != nil {
			return nil, err
		}

		if len(ids) == 0 {
			return nil, nil
		}

		biomarkerIDs = ids
	}

	return snapshotQuery(ctx, input.HumanID, sourceTypes, biomarkerIDs, input.Search)
}

// filteredBiomarkerIDs resolves the predicate branch: biomarkers whose
// filter rows satisfy every enabled predicate within the source types.
func filteredBiomarkerIDs(ctx context.Context, humanID uuid.UUID, sourceTypes []string, p PanelPredicates) ([]uuid.UUID, error) {
	filterables := make([]FilterableType, 0, len(sourceTypes))

	for _, name := range sourceTypes {
		ft, ok := FilterableTypeForSourceType(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSourceType, name)
		}

		filterables = append(filterables, ft)
	}

	query := `
		SELECT DISTINCT biomarker_id
		FROM filters
		WHERE human_id = $1
		  AND filterable_type = ANY($2)
		  AND (NOT $3 OR range_status IN ('above_range', 'below_range'))
		  AND (NOT $4 OR is_from_latest_exam)
	`

	rows, err := pool.Query(ctx, query, humanID, filterables, p.OutOfRange, p.FromLatestExam)
	if err != nil {
		return nil, fmt.Errorf("failed to query filtered biomarkers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan biomarker id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filtered biomarkers: %w", err)
	}

	return ids, nil
}

// snapshotQuery fetches the latest measure per biomarker with display
// name, unit conversion and on-the-fly range lookup in one round trip.
func snapshotQuery(ctx context.Context, humanID uuid.UUID, sourceTypes []string, biomarkerIDs []uuid.UUID, search string) ([]BiomarkerSnapshot, error) {
	args := []any{humanID, sourceTypes}
	conds := []string{}

	if len(biomarkerIDs) > 0 {
		args = append(args, biomarkerIDs)
		conds = append(conds, fmt.Sprintf("m.biomarker_id = ANY($%d)", len(args)))
	}

	tsquery := BuildSearchTSQuery(search)
	if tsquery != "" {
		args = append(args, tsquery)
		// Both sides go through f_unaccent so accented terms match
		// unaccented index tokens and vice versa.
		conds = append(conds, fmt.Sprintf(
			`to_tsvector('simple', f_unaccent(b.name || ' ' || COALESCE(sy.all_names, ''))) @@ to_tsquery('simple', f_unaccent($%d))`,
			len(args)))
	}

	extra := ""
	if len(conds) > 0 {
		extra = " AND " + strings.Join(conds, " AND ")
	}

	// Latest measure per biomarker; the lateral range lookup picks the
	// most recently updated row for the human's exact age at the
	// measurement date.
	query := `
		WITH latest AS (
			SELECT DISTINCT ON (m.biomarker_id)
			       m.id, m.biomarker_id, m.source_id, m.unit_id, m.value, m.date
			FROM measures m
			JOIN sources s ON s.id = m.source_id
			JOIN source_types st ON st.id = s.source_type_id
			WHERE s.human_id = $1
			  AND st.name = ANY($2)
			ORDER BY m.biomarker_id, m.date DESC, m.created_at DESC, m.id DESC
		)
		SELECT b.id, b.name,
		       COALESCE(syn.name, b.name) AS display_name,
		       l.id, l.value, l.date,
		       u.name, COALESCE(u.value_type, 1),
		       COALESCE(uf.factor, 1),
		       r.possible_min_value, r.possible_max_value,
		       st.name
		FROM latest l
		JOIN biomarkers b ON b.id = l.biomarker_id
		JOIN sources s ON s.id = l.source_id
		JOIN source_types st ON st.id = s.source_type_id
		JOIN humans h ON h.id = s.human_id
		LEFT JOIN units u ON u.id = l.unit_id
		LEFT JOIN unit_factors uf ON uf.biomarker_id = b.id AND uf.unit_id = l.unit_id
		LEFT JOIN LATERAL (
			SELECT name
			FROM synonyms
			WHERE biomarker_id = b.id AND language = 'PT'
			ORDER BY created_at ASC
			LIMIT 1
		) syn ON TRUE
		LEFT JOIN LATERAL (
			SELECT string_agg(name, ' ') AS all_names
			FROM synonyms
			WHERE biomarker_id = b.id
		) sy ON TRUE
		LEFT JOIN LATERAL (
			SELECT br.possible_min_value, br.possible_max_value
			FROM biomarker_ranges br
			WHERE br.biomarker_id = b.id
			  AND br.gender = h.gender
			  AND br.age = FLOOR(EXTRACT(EPOCH FROM (l.date - h.birthdate)) / 86400 / 365.25)::int
			ORDER BY br.updated_at DESC
			LIMIT 1
		) r ON TRUE
		WHERE TRUE` + extra + `
		ORDER BY display_name COLLATE "pt_BR" ASC
	`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query biomarker panel: %w", err)
	}
	defer rows.Close()

	var snapshots []BiomarkerSnapshot

	for rows.Next() {
		var (
			snap   BiomarkerSnapshot
			raw    float64
			factor float64
		)

		if err := rows.Scan(
			&snap.BiomarkerID, &snap.Name, &snap.DisplayName,
			&snap.MeasureID, &raw, &snap.Date,
			&snap.UnitName, &snap.ValueType,
			&factor,
			&snap.RangeMin, &snap.RangeMax,
			&snap.SourceType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snap.Value = raw * factor
		snap.RangeMin = scaleBound(snap.RangeMin, factor)
		snap.RangeMax = scaleBound(snap.RangeMax, factor)
		snap.RangeStatus = classifySnapshot(&snap)
		snap.MeasureStatus = measureStatus(snap.RangeStatus)
		snap.MeasureText = measureText(snap.Value, snap.ValueType)

		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

func scaleBound(bound *float64, factor float64) *float64 {
	if bound == nil {
		return nil
	}

	v := *bound * factor

	return &v
}

// classifySnapshot applies the inclusive range rule to the converted
// value and bounds.
func classifySnapshot(snap *BiomarkerSnapshot) RangeStatus {
	if snap.RangeMin == nil || snap.RangeMax == nil {
		return RangeNotAvailable
	}

	r := BiomarkerRange{PossibleMinValue: snap.RangeMin, PossibleMaxValue: snap.RangeMax}

	return r.Classify(snap.Value)
}

func measureStatus(status RangeStatus) string {
	if status == RangeAbove || status == RangeBelow {
		return MeasureStatusYellow
	}

	return MeasureStatusGreen
}

// measureText renders a value for display. Categorical values become
// Positivo/Negativo; numeric values render with minimal digits.
func measureText(value float64, valueType int) string {
	if valueType == ValueTypeCategorical {
		if value != 0 {
			return MeasureTextPositive
		}

		return MeasureTextNegative
	}

	return strconv.FormatFloat(value, 'f', -1, 64)
}
