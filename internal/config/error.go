package config

import "fmt"

// Reason says why a configuration variable was rejected.
type Reason string

const (
	ReasonMissing   Reason = "missing"
	ReasonMalformed Reason = "malformed"
)

// ConfigError reports a single unusable environment variable. Values are
// never echoed back, only the variable name and the rule it broke.
type ConfigError struct {
	Var    string
	Reason Reason
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Reason == ReasonMissing {
		return fmt.Sprintf("config: required variable %s is not set (set %s)", e.Var, e.Var)
	}
	if e.Detail != "" {
		return fmt.Sprintf("config: variable %s is malformed: %s", e.Var, e.Detail)
	}
	return fmt.Sprintf("config: variable %s is malformed", e.Var)
}
