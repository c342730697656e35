// SPDX-FileCopyrightText: 2026 The myBase Authors
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testContext() context.Context {
	return context.Background()
}

func stringPtr(value string) *string {
	return &value
}

func datePtr(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustCreateHuman(t *testing.T, name string, birthdate time.Time, gender Gender, phone *string) *Human {
	t.Helper()

	human, err := CreateHuman(testContext(), CreateHumanInput{
		Name:        name,
		Birthdate:   birthdate,
		Gender:      gender,
		PhoneNumber: phone,
	})
	if err != nil {
		t.Fatalf("failed to create human: %v", err)
	}

	return human
}

func mustCreateSource(t *testing.T, humanID uuid.UUID, sourceTypeName string) *Source {
	t.Helper()

	sourceType, err := GetSourceTypeByName(testContext(), sourceTypeName)
	if err != nil {
		t.Fatalf("failed to get source type: %v", err)
	}

	source, err := CreateSource(testContext(), CreateSourceInput{
		HumanID:      humanID,
		SourceTypeID: sourceType.ID,
	})
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}

	return source
}

func mustCreateBiomarker(t *testing.T, name string) *Biomarker {
	t.Helper()

	biomarker, err := CreateBiomarker(testContext(), name, nil)
	if err != nil {
		t.Fatalf("failed to create biomarker: %v", err)
	}

	return biomarker
}

func mustCreateMeasure(t *testing.T, biomarkerID, sourceID uuid.UUID, value float64, date time.Time) *Measure {
	t.Helper()

	measure, err := CreateMeasure(testContext(), CreateMeasureInput{
		BiomarkerID: biomarkerID,
		SourceID:    sourceID,
		Value:       value,
		Date:        date,
	})
	if err != nil {
		t.Fatalf("failed to create measure: %v", err)
	}

	return measure
}

func mustCreateRange(t *testing.T, biomarkerID uuid.UUID, gender Gender, age int, minValue, maxValue float64) *BiomarkerRange {
	t.Helper()

	r, err := UpsertBiomarkerRange(testContext(), BiomarkerRange{
		BiomarkerID:      biomarkerID,
		Gender:           gender,
		Age:              age,
		PossibleMinValue: &minValue,
		PossibleMaxValue: &maxValue,
	})
	if err != nil {
		t.Fatalf("failed to create biomarker range: %v", err)
	}

	return r
}

func mustGetFilter(t *testing.T, humanID, biomarkerID uuid.UUID, ft FilterableType) *Filter {
	t.Helper()

	filter, err := GetFilter(testContext(), humanID, biomarkerID, ft)
	if err != nil {
		t.Fatalf("failed to get filter: %v", err)
	}

	if filter == nil {
		t.Fatalf("expected filter for biomarker %s, got none", biomarkerID)
	}

	return filter
}
