package rules

import "errors"

var (
	// ErrMissingBusinessID is returned when the tenant scope is absent
	ErrMissingBusinessID = errors.New("business id is required")

	// ErrMissingIntent is returned when the intent label is empty
	ErrMissingIntent = errors.New("intent is required")

	// ErrMissingKeywords is returned when no keywords are provided
	ErrMissingKeywords = errors.New("at least one keyword is required")

	// ErrMissingResponse is returned when the canned response is empty
	ErrMissingResponse = errors.New("response is required")

	// ErrRuleNotFound is returned when a rule is not found
	ErrRuleNotFound = errors.New("rule not found")
)
