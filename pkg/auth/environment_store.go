package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads the API key and host from the process environment.
// It is read-only and answers for every profile.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(profile string) (*Credentials, error) {
	key, host := lookupEnv()
	if key == "" {
		return nil, ErrCredentialsNotFound
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &Credentials{
		Profile:      profile,
		APIKey:       key,
		APIHost:      host,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(profile string) bool {
	key, _ := lookupEnv()
	return key != ""
}

// lookupEnv prefers the GRIDPREVIEW_ names over the plain RAPIDAPI_ ones
func lookupEnv() (key, host string) {
	key = firstNonEmpty(os.Getenv("GRIDPREVIEW_RAPIDAPI_KEY"), os.Getenv("RAPIDAPI_KEY"))
	host = firstNonEmpty(os.Getenv("GRIDPREVIEW_RAPIDAPI_HOST"), os.Getenv("RAPIDAPI_HOST"))
	return key, host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
