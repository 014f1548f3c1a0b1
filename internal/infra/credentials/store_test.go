package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestGeminiAPIKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, err := store.GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestGeminiAPIKey_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestSetGeminiAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetGeminiAPIKey(context.Background(), "secret"); err != nil {
		t.Fatalf("SetGeminiAPIKey error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetGeminiAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetGeminiAPIKey(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestRenderKeys(t *testing.T) {
	store := NewStore(&stubExecutor{token: " ak-1:sk-2 "})
	access, secret, err := store.RenderKeys(context.Background())
	if err != nil {
		t.Fatalf("RenderKeys error: %v", err)
	}
	if access != "ak-1" || secret != "sk-2" {
		t.Fatalf("keys = %q/%q, want ak-1/sk-2", access, secret)
	}
}

func TestRenderKeys_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	access, secret, err := store.RenderKeys(context.Background())
	if err != nil {
		t.Fatalf("RenderKeys error: %v", err)
	}
	if access != "" || secret != "" {
		t.Fatalf("expected empty keys, got %q/%q", access, secret)
	}
}

func TestRenderKeysMalformed(t *testing.T) {
	store := NewStore(&stubExecutor{token: "just-one-part"})
	if _, _, err := store.RenderKeys(context.Background()); err == nil {
		t.Fatal("expected error for token without separator")
	}
}

func TestSetRenderKeys(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetRenderKeys(context.Background(), "ak", "sk"); err != nil {
		t.Fatalf("SetRenderKeys error: %v", err)
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "ak:sk" {
		t.Fatalf("expected joined token, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetRenderKeysEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetRenderKeys(context.Background(), "ak", " "); err == nil {
		t.Fatal("expected error for missing secret key")
	}
}

func TestComposeAPIKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: " ck "})
	key, err := store.ComposeAPIKey(context.Background())
	if err != nil {
		t.Fatalf("ComposeAPIKey error: %v", err)
	}
	if key != "ck" {
		t.Fatalf("expected ck, got %q", key)
	}
}

func TestSetComposeAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetComposeAPIKey(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}
