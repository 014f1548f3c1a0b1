package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storyreel/internal/db"
	"storyreel/internal/infra"
	"storyreel/internal/infra/credentials"
)

func main() {
	var (
		providerFlag  string
		keyFlag       string
		accessKeyFlag string
		secretKeyFlag string
	)
	flag.StringVar(&providerFlag, "provider", credentials.ProviderGemini, "provider to configure (gemini, render or compose)")
	flag.StringVar(&keyFlag, "key", "", "API key for gemini or compose (falls back to environment)")
	flag.StringVar(&accessKeyFlag, "access-key", "", "render access key (falls back to RENDER_ACCESS_KEY)")
	flag.StringVar(&secretKeyFlag, "secret-key", "", "render secret key (falls back to RENDER_SECRET_KEY)")
	flag.Parse()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if provider == "" {
		provider = credentials.ProviderGemini
	}
	switch provider {
	case credentials.ProviderGemini, credentials.ProviderRender, credentials.ProviderCompose:
	default:
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ensure schema: %v\n", err)
		os.Exit(1)
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Str("provider", provider).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()

	var persistErr error
	switch provider {
	case credentials.ProviderRender:
		accessKey := strings.TrimSpace(accessKeyFlag)
		if accessKey == "" {
			accessKey = strings.TrimSpace(os.Getenv("RENDER_ACCESS_KEY"))
		}
		secretKey := strings.TrimSpace(secretKeyFlag)
		if secretKey == "" {
			secretKey = strings.TrimSpace(os.Getenv("RENDER_SECRET_KEY"))
		}
		if accessKey == "" || secretKey == "" {
			fmt.Fprintln(os.Stderr, "render requires -access-key and -secret-key (or the matching environment variables)")
			os.Exit(1)
		}
		persistErr = store.SetRenderKeys(ctxExec, accessKey, secretKey)
	case credentials.ProviderCompose:
		key := resolveKey(keyFlag, "COMPOSE_API_KEY")
		if key == "" {
			fmt.Fprintln(os.Stderr, "compose API key is required via -key or COMPOSE_API_KEY")
			os.Exit(1)
		}
		persistErr = store.SetComposeAPIKey(ctxExec, key)
	default:
		key := resolveKey(keyFlag, "GEMINI_API_KEY")
		if key == "" {
			fmt.Fprintln(os.Stderr, "gemini API key is required via -key or GEMINI_API_KEY")
			os.Exit(1)
		}
		persistErr = store.SetGeminiAPIKey(ctxExec, key)
	}
	if persistErr != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s credentials: %v\n", provider, persistErr)
		os.Exit(1)
	}

	fmt.Printf("%s credentials stored successfully\n", provider)
}

func resolveKey(flagValue, envName string) string {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv(envName))
}
