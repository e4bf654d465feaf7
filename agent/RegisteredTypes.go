package agent

import "fmt"

// Type represents a specific type of ValueFunction Config
type Type string

const (
	// Tabular methods
	QLearning       Type = "single"
	DoubleQLearning Type = "double"

	// Function approximation methods
	DeepQ Type = "deepq"
)

// Types returns all known Types
func Types() []Type {
	return []Type{QLearning, DoubleQLearning, DeepQ}
}

// ParseType returns the Type named by s
func ParseType(s string) (Type, error) {
	for _, t := range Types() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("agent: unknown variant %q, want one of %v", s,
		Types())
}
