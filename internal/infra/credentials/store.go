package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"storyreel/internal/infra"
	"storyreel/internal/sqlinline"
)

const (
	ProviderGemini  = "gemini"
	ProviderRender  = "render"
	ProviderCompose = "compose"
)

// Store keeps provider credentials in the database so they can be rotated
// without redeploying. Environment variables take precedence; the store is
// the fallback source.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	return s.upsert(ctx, ProviderGemini, key, nil)
}

// RenderKeys returns the render provider access/secret key pair. The pair is
// stored as one token in "accessKey:secretKey" form.
func (s *Store) RenderKeys(ctx context.Context) (string, string, error) {
	token, err := s.Token(ctx, ProviderRender)
	if err != nil || token == "" {
		return "", "", err
	}
	access, secret, ok := strings.Cut(token, ":")
	if !ok {
		return "", "", errors.New("render credential is not in access:secret form")
	}
	return access, secret, nil
}

func (s *Store) SetRenderKeys(ctx context.Context, accessKey, secretKey string) error {
	accessKey = strings.TrimSpace(accessKey)
	secretKey = strings.TrimSpace(secretKey)
	if accessKey == "" || secretKey == "" {
		return errors.New("render access and secret keys are required")
	}
	return s.upsert(ctx, ProviderRender, accessKey+":"+secretKey, nil)
}

func (s *Store) ComposeAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderCompose)
}

func (s *Store) SetComposeAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("compose api key is required")
	}
	return s.upsert(ctx, ProviderCompose, key, nil)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
