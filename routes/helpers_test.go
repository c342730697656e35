// SPDX-FileCopyrightText: 2026 The myBase Authors
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/flamego/flamego"

	"github.com/mybasehealth/mybase/db"
)

func TestParseSourceTypesParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty means all", raw: "", want: nil},
		{name: "whitespace only", raw: "  ", want: nil},
		{name: "single", raw: "Blood", want: []string{"Blood"}},
		{name: "multiple", raw: "Blood,Image", want: []string{"Blood", "Image"}},
		{name: "trims and drops empties", raw: " Blood , ,Bioimpedance,", want: []string{"Blood", "Bioimpedance"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseSourceTypesParam(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseSourceTypesParam(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseBoolParam(t *testing.T) {
	t.Parallel()

	truthy := []string{"1", "true", "TRUE", "yes", "on", " true "}
	for _, raw := range truthy {
		if !parseBoolParam(raw) {
			t.Fatalf("parseBoolParam(%q) = false, want true", raw)
		}
	}

	falsy := []string{"", "0", "false", "no", "off", "banana"}
	for _, raw := range falsy {
		if parseBoolParam(raw) {
			t.Fatalf("parseBoolParam(%q) = true, want false", raw)
		}
	}
}

func TestRespondDBErrorStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "human not found", err: db.ErrHumanNotFound, wantStatus: http.StatusNotFound},
		{name: "measure not found", err: db.ErrMeasureNotFound, wantStatus: http.StatusNotFound},
		{name: "unknown source type", err: db.ErrUnknownSourceType, wantStatus: http.StatusBadRequest},
		{name: "generic error is hidden", err: db.ErrDatabaseConnectionNotInitialized, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := flamego.New()
			f.Get("/", func(c flamego.Context) {
				respondDBError(c, tt.err)
			})

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			f.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var payload map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if payload["error"] == "" {
				t.Fatal("expected error message in response body")
			}

			if tt.wantStatus == http.StatusInternalServerError && payload["error"] != "internal error" {
				t.Fatalf("expected generic internal error message, got %q", payload["error"])
			}
		})
	}
}

func TestUUIDParamRejectsGarbage(t *testing.T) {
	t.Parallel()

	f := flamego.New()
	f.Get("/{id}", func(c flamego.Context) {
		if _, ok := uuidParam(c, "id"); !ok {
			return
		}

		respondJSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/not-a-uuid", nil)
	f.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
