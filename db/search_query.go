/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import "strings"

// parseSearchTerms splits free-form search input into cleaned terms.
// Terms are lowercased and deduplicated; characters with meaning to
// tsquery are stripped so user input can never inject operators.
func parseSearchTerms(raw string) []string {
	var terms []string

	for _, token := range strings.Fields(strings.TrimSpace(raw)) {
		term := sanitizeSearchTerm(token)
		if term == "" {
			continue
		}

		terms = appendUniqueString(terms, strings.ToLower(term))
	}

	return terms
}

// BuildSearchTSQuery turns search input into a tsquery string: each
// term becomes a prefix match and all terms are required. Returns ""
// when no usable terms remain.
func BuildSearchTSQuery(raw string) string {
	terms := parseSearchTerms(raw)
	if len(terms) == 0 {
		return ""
	}

	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		parts = append(parts, term+":*")
	}

	return strings.Join(parts, " & ")
}

func sanitizeSearchTerm(token string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '&', '|', '!', '(', ')', ':', '*', '\'', '\\', '<', '>':
			return -1
		}

		return r
	}, strings.TrimSpace(token))
}

func appendUniqueString(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}

	return append(values, value)
}
