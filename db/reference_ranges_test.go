// SPDX-FileCopyrightText: 2026 The myBase Authors
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"io/fs"
	"testing"
)

func TestReferenceRangeDefinitionsAreWellFormed(t *testing.T) {
	t.Parallel()

	defs := GetReferenceRangeDefinitions()
	if len(defs) == 0 {
		t.Fatal("expected bundled reference range definitions")
	}

	genders := make(map[string]map[Gender]bool)

	for _, def := range defs {
		if def.BiomarkerName == "" {
			t.Fatal("definition without biomarker name")
		}

		if def.Gender != GenderMale && def.Gender != GenderFemale {
			t.Fatalf("%s: unexpected gender %q", def.BiomarkerName, def.Gender)
		}

		if def.AgeMin < 0 || def.AgeMax < def.AgeMin {
			t.Fatalf("%s: invalid age span %d-%d", def.BiomarkerName, def.AgeMin, def.AgeMax)
		}

		if def.Min != nil && def.Max != nil && *def.Min > *def.Max {
			t.Fatalf("%s: min %v above max %v", def.BiomarkerName, *def.Min, *def.Max)
		}

		if genders[def.BiomarkerName] == nil {
			genders[def.BiomarkerName] = make(map[Gender]bool)
		}

		genders[def.BiomarkerName][def.Gender] = true
	}

	for name, seen := range genders {
		if !seen[GenderMale] || !seen[GenderFemale] {
			t.Fatalf("%s: missing a gender variant", name)
		}
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(GetEmbeddedMigrations(), "migrations")
	if err != nil {
		t.Fatalf("expected embedded migrations: %v", err)
	}

	if len(entries) == 0 {
		t.Fatal("expected at least one migration file")
	}
}

func TestSyncReferenceRangesIsIdempotent(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	// resetDatabase already synced once; a second run must not add rows.
	var before int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM biomarker_ranges`).Scan(&before); err != nil {
		t.Fatalf("failed to count ranges: %v", err)
	}

	if err := SyncReferenceRanges(ctx); err != nil {
		t.Fatalf("SyncReferenceRanges failed: %v", err)
	}

	var after int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM biomarker_ranges`).Scan(&after); err != nil {
		t.Fatalf("failed to count ranges: %v", err)
	}

	if before != after {
		t.Fatalf("expected idempotent sync, rows went %d -> %d", before, after)
	}
}
