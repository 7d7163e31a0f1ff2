package validator

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagNotBlank = "notblank" // Non-empty after trimming whitespace
	TagTrimmed  = "trimmed"  // String should be trimmed (no leading/trailing spaces)
)

// registerCustomRules registers all custom validation rules.
func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
	_ = v.validate.RegisterValidation(TagTrimmed, validateTrimmed)
}

// validateNotBlank fails on empty and whitespace-only strings.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateTrimmed validates that a string has no leading or trailing whitespace.
func validateTrimmed(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return !unicode.IsSpace(rune(value[0])) && !unicode.IsSpace(rune(value[len(value)-1]))
}
