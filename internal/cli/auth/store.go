package auth

import "github.com/vector-skill/academy/internal/session"

// KeyringStore adapts the keyring functions to the session.TokenStore
// interface, scoped to one environment.
type KeyringStore struct {
	Env string
}

func (s *KeyringStore) Save(token string) error {
	return SaveToken(s.Env, token)
}

func (s *KeyringStore) Load() (string, error) {
	return LoadToken(s.Env)
}

func (s *KeyringStore) Delete() error {
	return DeleteToken(s.Env)
}

var _ session.TokenStore = (*KeyringStore)(nil)

// MemoryStore is an in-memory token store for tests.
type MemoryStore struct {
	Token string
}

func (s *MemoryStore) Save(token string) error {
	s.Token = token
	return nil
}

func (s *MemoryStore) Load() (string, error) {
	return s.Token, nil
}

func (s *MemoryStore) Delete() error {
	s.Token = ""
	return nil
}
