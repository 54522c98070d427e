package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

const messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// ServiceAccount is the service-account key material, loaded once at process
// start.
type ServiceAccount struct {
	ProjectID string

	raw []byte
}

func LoadServiceAccountFile(path string) (*ServiceAccount, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	var meta struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if meta.ProjectID == "" {
		return nil, errors.New("service account key has no project_id")
	}
	return &ServiceAccount{ProjectID: meta.ProjectID, raw: b}, nil
}

// GoogleTokenSource fetches bearer tokens for the messaging scope using the
// service-account JWT grant.
type GoogleTokenSource struct {
	cfg *jwt.Config
}

func NewGoogleTokenSource(sa *ServiceAccount) (*GoogleTokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(sa.raw, messagingScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return &GoogleTokenSource{cfg: cfg}, nil
}

// Fetch builds a fresh oauth2 TokenSource per call so a forced refresh is
// never served from the oauth2 package's internal cache.
func (s *GoogleTokenSource) Fetch(ctx context.Context) (Credential, error) {
	tok, err := s.cfg.TokenSource(ctx).Token()
	if err != nil {
		return Credential{}, err
	}
	return Credential{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}
