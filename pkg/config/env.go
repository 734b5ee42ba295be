package config

import "strings"

// Deployment environments recognised by the loader.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// NormalizeEnvironment lowercases and trims an environment name. An empty
// name means development.
func NormalizeEnvironment(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return EnvDevelopment
	}
	return env
}

// IsProductionLike reports whether env requires explicit, non-local
// infrastructure configuration.
func IsProductionLike(env string) bool {
	switch NormalizeEnvironment(env) {
	case EnvStaging, EnvProduction:
		return true
	}
	return false
}

// IsProductionLike reports whether the server runs in staging or production.
func (s ServerConfig) IsProductionLike() bool {
	return IsProductionLike(s.Environment)
}
