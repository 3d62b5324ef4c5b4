// Package secrets provides lookup of secret credentials.
package secrets

import "os"

// Provider returns secrets by name. The second return value reports
// whether the secret exists.
type Provider interface {
	GetSecret(name string) (string, bool)
}

// EnvProvider reads secrets from process environment variables.
type EnvProvider struct{}

// GetSecret returns the value of the environment variable with the
// given name. Empty values are treated as absent.
func (EnvProvider) GetSecret(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Static is a fixed in-memory secret set, used in tests and local
// development.
type Static map[string]string

// GetSecret returns the stored value for name.
func (s Static) GetSecret(name string) (string, bool) {
	value, ok := s[name]
	return value, ok
}
