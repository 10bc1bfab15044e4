package rules

import "errors"

var (
	// ErrRuleNotLoaded is returned by Expire when the given rule was never
	// loaded (or has already expired).
	ErrRuleNotLoaded = errors.New("rules: rule is not currently loaded")
)
