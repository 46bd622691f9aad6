package core

import "strings"

// Environment names the deployment the assistant runs in. It selects the
// log format and default log level.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment accepts full names and the short forms dev, stage, test
// and prod in any case. Anything else is Development.
func ParseEnvironment(v string) Environment {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "testing", "test":
		return Testing
	default:
		return Development
	}
}

// UnmarshalText lets envconfig decode ENVIRONMENT straight into an
// Environment.
func (e *Environment) UnmarshalText(b []byte) error {
	*e = ParseEnvironment(string(b))
	return nil
}
