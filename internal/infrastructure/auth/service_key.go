package auth

import (
	"errors"

	"github.com/recipefy/backend/internal/infrastructure/config"
	"golang.org/x/crypto/bcrypt"
)

// Scopes a collaborator key can hold
const (
	ScopeUsageConsume = "usage:consume"
	ScopeUsageIngest  = "usage:ingest"
)

// Hash cost for newly generated key hashes
const bcryptCost = 12

// ErrUnknownServiceKey is returned when a presented key matches no
// configured collaborator.
var ErrUnknownServiceKey = errors.New("unknown service key")

// ServiceIdentity is the resolved caller of a service-authenticated request
type ServiceIdentity struct {
	Name   string
	scopes map[string]struct{}
}

// NewServiceIdentity builds an identity directly, bypassing key verification.
// Used where the caller is established by other means.
func NewServiceIdentity(name string, scopes ...string) *ServiceIdentity {
	set := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		set[scope] = struct{}{}
	}
	return &ServiceIdentity{Name: name, scopes: set}
}

// HasScope reports whether the identity holds the given scope
func (i *ServiceIdentity) HasScope(scope string) bool {
	_, ok := i.scopes[scope]
	return ok
}

// ServiceKeyVerifier authenticates collaborator backends by API key.
// Configuration carries only bcrypt hashes; raw keys are never stored.
type ServiceKeyVerifier struct {
	keys []serviceKey
}

type serviceKey struct {
	name   string
	hash   []byte
	scopes map[string]struct{}
}

// NewServiceKeyVerifier creates a verifier from the configured key set
func NewServiceKeyVerifier(cfg config.ServiceAuthConfig) *ServiceKeyVerifier {
	keys := make([]serviceKey, 0, len(cfg.Keys))
	for _, keyCfg := range cfg.Keys {
		scopes := make(map[string]struct{}, len(keyCfg.Scopes))
		for _, scope := range keyCfg.Scopes {
			scopes[scope] = struct{}{}
		}
		keys = append(keys, serviceKey{
			name:   keyCfg.Name,
			hash:   []byte(keyCfg.KeyHash),
			scopes: scopes,
		})
	}
	return &ServiceKeyVerifier{keys: keys}
}

// Verify matches a presented key against the configured hashes. The key set
// is one entry per collaborator service, so trying each hash in turn is fine.
func (v *ServiceKeyVerifier) Verify(rawKey string) (*ServiceIdentity, error) {
	if rawKey == "" {
		return nil, ErrUnknownServiceKey
	}
	for _, key := range v.keys {
		if bcrypt.CompareHashAndPassword(key.hash, []byte(rawKey)) == nil {
			return &ServiceIdentity{Name: key.name, scopes: key.scopes}, nil
		}
	}
	return nil, ErrUnknownServiceKey
}

// HashServiceKey hashes a raw key for storage in configuration
func HashServiceKey(rawKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
