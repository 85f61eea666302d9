// Package schema validates open item payloads against a collection's
// declarative field list. The schema describes minimum guarantees, not a
// closed set: payload fields without a definition are always accepted so
// schemaless collections keep working.
package schema

import (
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/appforge/data-platform/internal/core/domain"
)

// dateLayouts are the accepted calendar formats for date fields.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Validate checks payload against schema and returns every violation found.
// An empty schema validates any payload. The caller rejects the write only
// when the returned slice is non-empty.
func Validate(payload domain.Data, schema []domain.FieldDef) []domain.FieldViolation {
	var violations []domain.FieldViolation

	for _, field := range schema {
		value, present := payload[field.Name]

		if !present || value == nil {
			if field.Required {
				violations = append(violations, requiredViolation(field))
			}
			continue
		}

		// An empty string never satisfies a required field. On optional
		// fields it is a present value and gets type-checked like any
		// other, so "" cannot sneak past a url or enum constraint.
		if s, ok := value.(string); ok && s == "" && field.Required {
			violations = append(violations, requiredViolation(field))
			continue
		}

		violations = append(violations, checkType(field, value)...)
	}

	return violations
}

func requiredViolation(field domain.FieldDef) domain.FieldViolation {
	return domain.FieldViolation{Field: field.Name, Rule: "required", Message: "is required"}
}

func checkType(field domain.FieldDef, value any) []domain.FieldViolation {
	switch field.Type {
	case domain.FieldText:
		return checkText(field, value)
	case domain.FieldNumber:
		return checkNumber(field, value)
	case domain.FieldBoolean:
		if _, ok := value.(bool); !ok {
			return violation(field, "boolean", "must be a boolean")
		}
	case domain.FieldDate:
		return checkDate(field, value)
	case domain.FieldEmail:
		return checkEmail(field, value)
	case domain.FieldURL:
		return checkURL(field, value)
	case domain.FieldEnum:
		return checkEnum(field, value)
	case domain.FieldJSON:
		// Anything goes.
	}
	return nil
}

func checkText(field domain.FieldDef, value any) []domain.FieldViolation {
	s, ok := value.(string)
	if !ok {
		return violation(field, "text", "must be a string")
	}
	var out []domain.FieldViolation
	if field.MinLength != nil && len(s) < *field.MinLength {
		out = append(out, domain.FieldViolation{
			Field:   field.Name,
			Rule:    "minLength",
			Message: fmt.Sprintf("must be at least %d characters", *field.MinLength),
		})
	}
	if field.MaxLength != nil && len(s) > *field.MaxLength {
		out = append(out, domain.FieldViolation{
			Field:   field.Name,
			Rule:    "maxLength",
			Message: fmt.Sprintf("must be at most %d characters", *field.MaxLength),
		})
	}
	return out
}

func checkNumber(field domain.FieldDef, value any) []domain.FieldViolation {
	n, ok := asNumber(value)
	if !ok {
		return violation(field, "number", "must be a number")
	}
	var out []domain.FieldViolation
	if field.Min != nil && n < *field.Min {
		out = append(out, domain.FieldViolation{
			Field:   field.Name,
			Rule:    "min",
			Message: fmt.Sprintf("must be >= %g", *field.Min),
		})
	}
	if field.Max != nil && n > *field.Max {
		out = append(out, domain.FieldViolation{
			Field:   field.Name,
			Rule:    "max",
			Message: fmt.Sprintf("must be <= %g", *field.Max),
		})
	}
	return out
}

// asNumber accepts every numeric representation a JSON decode or a Go
// caller may hand us.
func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func checkDate(field domain.FieldDef, value any) []domain.FieldViolation {
	s, ok := value.(string)
	if !ok {
		return violation(field, "date", "must be a date string")
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return violation(field, "date", "must be a valid date")
}

func checkEmail(field domain.FieldDef, value any) []domain.FieldViolation {
	s, ok := value.(string)
	if !ok {
		return violation(field, "email", "must be an email string")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return violation(field, "email", "must be a valid email address")
	}
	return nil
}

func checkURL(field domain.FieldDef, value any) []domain.FieldViolation {
	s, ok := value.(string)
	if !ok {
		return violation(field, "url", "must be a URL string")
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return violation(field, "url", "must be an absolute URL")
	}
	return nil
}

func checkEnum(field domain.FieldDef, value any) []domain.FieldViolation {
	s, ok := value.(string)
	if !ok {
		return violation(field, "enum", "must be a string")
	}
	for _, allowed := range field.EnumValues {
		if s == allowed {
			return nil
		}
	}
	return violation(field, "enum", fmt.Sprintf("must be one of %v", field.EnumValues))
}

func violation(field domain.FieldDef, rule, msg string) []domain.FieldViolation {
	return []domain.FieldViolation{{Field: field.Name, Rule: rule, Message: msg}}
}
