package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storyreel/internal/adapter/repo"
	"storyreel/internal/db"
	"storyreel/internal/infra"
	"storyreel/internal/infra/credentials"
	"storyreel/internal/providers/renderapi"
	"storyreel/internal/render"
	"storyreel/internal/session"
	"storyreel/internal/sqlinline"
	"storyreel/internal/storage"
)

const maxSegmentBytes = 512 << 20

// pollWorker drives render jobs forward in the background so sessions make
// progress without a client polling the API, and copies finished segments
// into local storage so exports survive provider-side URI expiry.
type pollWorker struct {
	runner      *infra.SQLRunner
	service     *session.Service
	store       *storage.FileStore
	httpClient  *http.Client
	logger      infra.Logger
	backupBatch int
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to ensure schema")
	}

	runner := infra.NewSQLRunner(pool, logger)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	renderAccessKey, renderSecretKey := cfg.RenderAccessKey, cfg.RenderSecretKey
	if renderAccessKey == "" || renderSecretKey == "" {
		credStore := credentials.NewStore(runner)
		if ak, sk, err := credStore.RenderKeys(ctx); err == nil && ak != "" {
			renderAccessKey, renderSecretKey = ak, sk
		}
	}

	var renderProvider render.SubmitPoller
	if renderAccessKey != "" && renderSecretKey != "" {
		client, err := renderapi.NewClient(renderapi.Options{
			AccessKey:   renderAccessKey,
			SecretKey:   renderSecretKey,
			BaseURL:     cfg.RenderBaseURL,
			Model:       cfg.RenderModel,
			AspectRatio: cfg.RenderAspectRatio,
			Logger:      &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to configure render provider")
		}
		renderProvider = client
	} else {
		logger.Warn().Msg("worker: render provider keys missing, using synthetic rendering")
		renderProvider = renderapi.NewSynthetic(2)
	}

	var terminalCache render.TerminalCache
	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: redis unavailable, terminal statuses cached in-process only")
	} else if redisClient != nil {
		defer redisClient.Close()
		terminalCache = render.NewRedisTerminalCache(redisClient, logger)
	}

	// The worker only advances jobs and places clips; dispatch, regeneration
	// and merging stay API-side concerns.
	svc := session.NewService(session.Deps{
		Sessions: repo.NewSessionRepository(pool),
		Jobs:     repo.NewJobRepository(pool),
		Tracker:  render.NewTracker(renderProvider, terminalCache, logger),
		Logger:   logger,
	})

	worker := &pollWorker{
		runner:      runner,
		service:     svc,
		store:       fileStore,
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		logger:      logger,
		backupBatch: cfg.WorkerBackupBatch,
	}

	logger.Info().Dur("interval", cfg.WorkerPollInterval).Msg("worker: started")
	ticker := time.NewTicker(cfg.WorkerPollInterval)
	defer ticker.Stop()
	for {
		worker.tick(ctx)
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker: stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *pollWorker) tick(ctx context.Context) {
	if err := w.advanceSessions(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error().Err(err).Msg("worker: advance sessions failed")
	}
	if err := w.backupSegments(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error().Err(err).Msg("worker: segment backup failed")
	}
}

// advanceSessions runs one poll round trip for every session that still has
// a processing job.
func (w *pollWorker) advanceSessions(ctx context.Context) error {
	rows, err := w.runner.Query(ctx, sqlinline.QWorkerSessionsWithProcessingJobs)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		result, err := w.service.Status(ctx, id)
		if err != nil {
			w.logger.Error().Err(err).Str("session_id", id).Msg("worker: poll session failed")
			continue
		}
		if result.AllSucceeded {
			w.logger.Info().Str("session_id", id).Msg("worker: all jobs succeeded")
		}
	}
	return nil
}

type backupCandidate struct {
	JobID     string
	SessionID string
	ShotIndex int
	ResultURI string
}

// backupSegments downloads a bounded batch of finished segments into local
// storage and records the storage key on the job.
func (w *pollWorker) backupSegments(ctx context.Context) error {
	rows, err := w.runner.Query(ctx, sqlinline.QWorkerSucceededJobsWithoutBackup, w.backupBatch)
	if err != nil {
		return err
	}
	var candidates []backupCandidate
	for rows.Next() {
		var c backupCandidate
		if err := rows.Scan(&c.JobID, &c.SessionID, &c.ShotIndex, &c.ResultURI); err != nil {
			rows.Close()
			return err
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range candidates {
		key, err := w.backupOne(ctx, c)
		if err != nil {
			w.logger.Warn().Err(err).Str("job_id", c.JobID).Msg("worker: backup segment failed")
			continue
		}
		if _, err := w.runner.Exec(ctx, sqlinline.QWorkerMarkBackedUp, c.JobID, key); err != nil {
			w.logger.Error().Err(err).Str("job_id", c.JobID).Msg("worker: mark backup failed")
		}
	}
	return nil
}

func (w *pollWorker) backupOne(ctx context.Context, c backupCandidate) (string, error) {
	// Non-HTTP URIs (synthetic results) have nothing to download; marking
	// them keeps the batch from retrying forever.
	if !strings.HasPrefix(c.ResultURI, "http://") && !strings.HasPrefix(c.ResultURI, "https://") {
		return "external", nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ResultURI, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download segment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download segment: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSegmentBytes))
	if err != nil {
		return "", fmt.Errorf("read segment: %w", err)
	}
	key := path.Join("sessions", c.SessionID, "segments", fmt.Sprintf("shot_%03d.mp4", c.ShotIndex))
	savedKey, err := w.store.Write(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("store segment: %w", err)
	}
	w.logger.Info().Str("job_id", c.JobID).Str("key", savedKey).Msg("worker: segment backed up")
	return savedKey, nil
}
