/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ReferenceRangeDefinition represents a seeded reference range. Ages
// are a closed span; one row per age is written so lookups stay an
// exact (biomarker, gender, age) match.
type ReferenceRangeDefinition struct {
	BiomarkerName string
	SynonymPT     string
	Gender        Gender
	AgeMin        int
	AgeMax        int
	Min           *float64
	Max           *float64
}

// ptr is a helper to create pointers to float64 literals
func ptr(f float64) *float64 {
	return &f
}

// GetReferenceRangeDefinitions returns the reference ranges seeded at
// startup. This is the authoritative source of truth for the bundled
// biomarkers; unit-entered ranges layer on top as newer versions.
func GetReferenceRangeDefinitions() []ReferenceRangeDefinition {
	return []ReferenceRangeDefinition{
		// ===== HEMOGLOBIN (g/dL) =====
		{
			BiomarkerName: "Hemoglobin", SynonymPT: "Hemoglobina",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(13.5), Max: ptr(17.5),
		},
		{
			BiomarkerName: "Hemoglobin", SynonymPT: "Hemoglobina",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(12.0), Max: ptr(15.5),
		},

		// ===== WHITE BLOOD CELLS (×10³/μL) =====
		{
			BiomarkerName: "White blood cells", SynonymPT: "Leucócitos",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(4.5), Max: ptr(11.0),
		},
		{
			BiomarkerName: "White blood cells", SynonymPT: "Leucócitos",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(4.5), Max: ptr(11.0),
		},

		// ===== PLATELETS (×10³/μL) =====
		{
			BiomarkerName: "Platelets", SynonymPT: "Plaquetas",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(150), Max: ptr(450),
		},
		{
			BiomarkerName: "Platelets", SynonymPT: "Plaquetas",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(150), Max: ptr(450),
		},

		// ===== FASTING GLUCOSE (mg/dL) =====
		{
			BiomarkerName: "Glucose", SynonymPT: "Glicose",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(70), Max: ptr(99),
		},
		{
			BiomarkerName: "Glucose", SynonymPT: "Glicose",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(70), Max: ptr(99),
		},

		// ===== GLYCATED HEMOGLOBIN (%) =====
		{
			BiomarkerName: "Glycated hemoglobin", SynonymPT: "Hemoglobina glicada",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(4.0), Max: ptr(5.6),
		},
		{
			BiomarkerName: "Glycated hemoglobin", SynonymPT: "Hemoglobina glicada",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(4.0), Max: ptr(5.6),
		},

		// ===== TOTAL CHOLESTEROL (mg/dL) =====
		{
			BiomarkerName: "Total cholesterol", SynonymPT: "Colesterol total",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0), Max: ptr(190),
		},
		{
			BiomarkerName: "Total cholesterol", SynonymPT: "Colesterol total",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0), Max: ptr(190),
		},

		// ===== HDL CHOLESTEROL (mg/dL) =====
		{
			BiomarkerName: "HDL cholesterol", SynonymPT: "Colesterol HDL",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(40), Max: ptr(999),
		},
		{
			BiomarkerName: "HDL cholesterol", SynonymPT: "Colesterol HDL",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(50), Max: ptr(999),
		},

		// ===== LDL CHOLESTEROL (mg/dL) =====
		{
			BiomarkerName: "LDL cholesterol", SynonymPT: "Colesterol LDL",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0), Max: ptr(130),
		},
		{
			BiomarkerName: "LDL cholesterol", SynonymPT: "Colesterol LDL",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0), Max: ptr(130),
		},

		// ===== TRIGLYCERIDES (mg/dL) =====
		{
			BiomarkerName: "Triglycerides", SynonymPT: "Triglicerídeos",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0), Max: ptr(150),
		},
		{
			BiomarkerName: "Triglycerides", SynonymPT: "Triglicerídeos",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0), Max: ptr(150),
		},

		// ===== TSH (μIU/mL) =====
		{
			BiomarkerName: "TSH", SynonymPT: "Hormônio tireoestimulante",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0.4), Max: ptr(4.0),
		},
		{
			BiomarkerName: "TSH", SynonymPT: "Hormônio tireoestimulante",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0.4), Max: ptr(4.0),
		},

		// ===== FERRITIN (ng/mL) =====
		{
			BiomarkerName: "Ferritin", SynonymPT: "Ferritina",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(24), Max: ptr(336),
		},
		{
			BiomarkerName: "Ferritin", SynonymPT: "Ferritina",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(11), Max: ptr(307),
		},

		// ===== VITAMIN D, 25-OH (ng/mL) =====
		{
			BiomarkerName: "Vitamin D", SynonymPT: "Vitamina D",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(30), Max: ptr(100),
		},
		{
			BiomarkerName: "Vitamin D", SynonymPT: "Vitamina D",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(30), Max: ptr(100),
		},

		// ===== CREATININE (mg/dL) =====
		{
			BiomarkerName: "Creatinine", SynonymPT: "Creatinina",
			Gender: GenderMale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0.74), Max: ptr(1.35),
		},
		{
			BiomarkerName: "Creatinine", SynonymPT: "Creatinina",
			Gender: GenderFemale, AgeMin: 18, AgeMax: 120,
			Min: ptr(0.59), Max: ptr(1.04),
		},
	}
}

// SyncReferenceRanges upserts the bundled biomarkers, their Portuguese
// synonyms and reference ranges. Runs after migrations on every
// startup; re-running is a no-op for unchanged definitions, while a
// changed bound inserts a newer range version that wins lookups.
func SyncReferenceRanges(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	for _, def := range GetReferenceRangeDefinitions() {
		biomarkerID, err := findOrCreateBiomarkerByName(ctx, def.BiomarkerName, def.SynonymPT)
		if err != nil {
			return fmt.Errorf("failed to sync biomarker %q: %w", def.BiomarkerName, err)
		}

		query := `
			INSERT INTO biomarker_ranges (biomarker_id, gender, age, possible_min_value, possible_max_value)
			SELECT $1, $2, a, $3, $4
			FROM generate_series($5::int, $6::int) AS a
			WHERE NOT EXISTS (
				SELECT 1 FROM biomarker_ranges br
				WHERE br.biomarker_id = $1
				  AND br.gender = $2
				  AND br.age = a
				  AND br.possible_min_value IS NOT DISTINCT FROM $3
				  AND br.possible_max_value IS NOT DISTINCT FROM $4
			)
		`

		_, err = pool.Exec(ctx, query,
			biomarkerID, def.Gender, def.Min, def.Max, def.AgeMin, def.AgeMax,
		)
		if err != nil {
			return fmt.Errorf("failed to sync ranges for %q: %w", def.BiomarkerName, err)
		}
	}

	logger.Debug("Synced reference ranges", "definitions", len(GetReferenceRangeDefinitions()))

	return nil
}

// findOrCreateBiomarkerByName resolves a bundled biomarker, creating it
// with its Portuguese synonym on first run.
func findOrCreateBiomarkerByName(ctx context.Context, name, synonymPT string) (string, error) {
	var id string

	err := pool.QueryRow(ctx, `SELECT id FROM biomarkers WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to look up biomarker: %w", err)
	}

	biomarker, err := CreateBiomarker(ctx, name, nil)
	if err != nil {
		return "", err
	}

	if synonymPT != "" && synonymPT != name {
		if err := AddSynonym(ctx, biomarker.ID, synonymPT, "PT"); err != nil {
			return "", err
		}
	}

	return biomarker.ID.String(), nil
}
