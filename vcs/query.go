package vcs

import (
	"fmt"
	"regexp"
)

// Query limits enforced before any upstream call.
const (
	MaxQueryLength      = 256
	MaxBooleanOperators = 5
)

var booleanOperator = regexp.MustCompile(`(?i)\b(AND|OR|NOT)\b`)

// ValidateQuery rejects queries longer than MaxQueryLength characters or
// with more than MaxBooleanOperators whole-word AND/OR/NOT operators.
func ValidateQuery(q string) error {
	if n := len([]rune(q)); n > MaxQueryLength {
		return &BadRequestError{
			Code:    CodeQueryMaxLengthExceeded,
			Message: fmt.Sprintf("Query string exceeds the %d-character limit.", MaxQueryLength),
			Details: map[string]any{"maxLength": MaxQueryLength, "length": n},
		}
	}

	if n := len(booleanOperator.FindAllStringIndex(q, -1)); n > MaxBooleanOperators {
		return &BadRequestError{
			Code:    CodeQueryTooManyBooleanOperators,
			Message: fmt.Sprintf("Query contains more than %d boolean operators (AND/OR/NOT).", MaxBooleanOperators),
			Details: map[string]any{"operatorCount": n, "maxAllowed": MaxBooleanOperators},
		}
	}
	return nil
}
