package redis

import "strings"

const (
	// KeyPrefix namespaces every session key.
	KeyPrefix = "shelf:session:"
	// indexSuffix names the set tracking the keys written for one profile.
	indexSuffix = "keys"
)

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "default"

// ProfilePrefix returns the key prefix of one profile, ex: "shelf:session:work:".
func ProfilePrefix(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	return KeyPrefix + profile + ":"
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) indexKey() string {
	return s.prefix + indexSuffix
}
