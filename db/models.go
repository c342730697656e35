/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"time"

	"github.com/google/uuid"
)

// Gender represents biological sex for reference range lookups
type Gender string

// Gender values represent supported biological-sex categories.
const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// FilterableType identifies which kind of source a filter row tracks
type FilterableType string

// FilterableType values mirror the seeded source types.
const (
	FilterableBlood        FilterableType = "blood"
	FilterableBioimpedance FilterableType = "bioimpedance"
	FilterableImage        FilterableType = "image"
)

// RangeStatus classifies a measured value against its reference range
type RangeStatus string

// RangeStatus values cover the absent-range case explicitly.
const (
	RangeNotAvailable RangeStatus = "not_available"
	RangeNormal       RangeStatus = "normal"
	RangeAbove        RangeStatus = "above_range"
	RangeBelow        RangeStatus = "below_range"
)

// SourceOrigin records how a source entered the system
type SourceOrigin string

// SourceOrigin values represent supported ingestion paths.
const (
	OriginUnit  SourceOrigin = "unit"
	OriginBatch SourceOrigin = "batch"
	OriginAPI   SourceOrigin = "api"
)

// ConversationStatus tracks whether a WhatsApp conversation is open
type ConversationStatus string

// ConversationStatus values.
const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// MessageDirection distinguishes inbound from outbound messages
type MessageDirection string

// MessageDirection values.
const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// Unit value types. Numeric values compare against ranges; categorical
// values render as Positivo/Negativo.
const (
	ValueTypeNumeric     = 1
	ValueTypeCategorical = 2
)

// Human represents a person whose measurements are tracked
type Human struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Birthdate   time.Time `db:"birthdate"`
	Gender      Gender    `db:"gender"`
	PhoneNumber *string   `db:"phone_number"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// AgeAt returns the human's age in completed years at the given date.
func (h *Human) AgeAt(date time.Time) int {
	days := date.Sub(h.Birthdate).Hours() / 24
	age := int(days / 365.25)
	if age < 0 {
		return 0
	}

	return age
}

// SourceType represents a category of measurement source
type SourceType struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Source represents one exam or device reading session
type Source struct {
	ID           uuid.UUID    `db:"id"`
	HumanID      uuid.UUID    `db:"human_id"`
	SourceTypeID uuid.UUID    `db:"source_type_id"`
	Origin       SourceOrigin `db:"origin"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// Unit represents a measurement unit
type Unit struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	ValueType int       `db:"value_type"`
	CreatedAt time.Time `db:"created_at"`
}

// UnitFactor converts a biomarker's stored values into a display unit
type UnitFactor struct {
	ID          uuid.UUID `db:"id"`
	BiomarkerID uuid.UUID `db:"biomarker_id"`
	UnitID      uuid.UUID `db:"unit_id"`
	Factor      float64   `db:"factor"`
}

// Biomarker represents a measurable health indicator
type Biomarker struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	ExternalRef *string   `db:"external_ref"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Synonym is an alternate (usually Portuguese) name for a biomarker
type Synonym struct {
	ID          uuid.UUID `db:"id"`
	BiomarkerID uuid.UUID `db:"biomarker_id"`
	Name        string    `db:"name"`
	Language    string    `db:"language"`
	CreatedAt   time.Time `db:"created_at"`
}

// BiomarkerRange is one versioned reference range row. Lookups take the
// most recently updated row matching (biomarker, gender, age).
type BiomarkerRange struct {
	ID               uuid.UUID `db:"id"`
	BiomarkerID      uuid.UUID `db:"biomarker_id"`
	Gender           Gender    `db:"gender"`
	Age              int       `db:"age"`
	PossibleMinValue *float64  `db:"possible_min_value"`
	PossibleMaxValue *float64  `db:"possible_max_value"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Classify compares a value against the range, bounds inclusive.
func (r *BiomarkerRange) Classify(value float64) RangeStatus {
	if r == nil || r.PossibleMinValue == nil || r.PossibleMaxValue == nil {
		return RangeNotAvailable
	}

	if value > *r.PossibleMaxValue {
		return RangeAbove
	}

	if value < *r.PossibleMinValue {
		return RangeBelow
	}

	return RangeNormal
}

// Measure represents a single biomarker measurement
type Measure struct {
	ID          uuid.UUID  `db:"id"`
	BiomarkerID uuid.UUID  `db:"biomarker_id"`
	SourceID    uuid.UUID  `db:"source_id"`
	UnitID      *uuid.UUID `db:"unit_id"`
	Value       float64    `db:"value"`
	Date        time.Time  `db:"date"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Filter is the per-(human, biomarker, source type) derived state the
// query engine filters on. One row per triplet, enforced by a unique
// index on the denormalized columns.
type Filter struct {
	ID               uuid.UUID      `db:"id"`
	MeasureID        uuid.UUID      `db:"measure_id"`
	HumanID          uuid.UUID      `db:"human_id"`
	BiomarkerID      uuid.UUID      `db:"biomarker_id"`
	FilterableType   FilterableType `db:"filterable_type"`
	RangeStatus      RangeStatus    `db:"range_status"`
	IsFromLatestExam bool           `db:"is_from_latest_exam"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// OutOfRange reports whether the filter's status is above or below range.
func (f *Filter) OutOfRange() bool {
	return f.RangeStatus == RangeAbove || f.RangeStatus == RangeBelow
}

// Label is a taxonomy node used to group biomarkers into sections
type Label struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Conversation groups WhatsApp messages exchanged with one phone number
type Conversation struct {
	ID                  uuid.UUID          `db:"id"`
	HumanID             *uuid.UUID         `db:"human_id"`
	CustomerPhoneNumber string             `db:"customer_phone_number"`
	CompanyPhoneNumber  *string            `db:"company_phone_number"`
	Status              ConversationStatus `db:"status"`
	LastMessageAt       *time.Time         `db:"last_message_at"`
	CreatedAt           time.Time          `db:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at"`
}

// Message is a single WhatsApp message within a conversation
type Message struct {
	ID             uuid.UUID        `db:"id"`
	ConversationID uuid.UUID        `db:"conversation_id"`
	Direction      MessageDirection `db:"direction"`
	Body           string           `db:"body"`
	SentAt         time.Time        `db:"sent_at"`
	CreatedAt      time.Time        `db:"created_at"`
}

// FilterableTypeForSourceType maps a seeded source type name to its
// filterable type.
func FilterableTypeForSourceType(name string) (FilterableType, bool) {
	switch name {
	case "Blood":
		return FilterableBlood, true
	case "Bioimpedance":
		return FilterableBioimpedance, true
	case "Image":
		return FilterableImage, true
	}

	return "", false
}
