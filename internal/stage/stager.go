package stage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/entity"
)

// ObjectStore is the content-store capability the stager needs. Keys are
// opaque and globally unique per upload; there is no deletion path here.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	SignedGetURL(key string, ttl time.Duration) (string, error)
}

// Stager uploads normalized images and hands out time-limited retrieval
// references. The model client only ever sees presigned URLs, never bytes.
type Stager struct {
	store      ObjectStore
	presignTTL time.Duration
	limit      int
	log        *slog.Logger
}

func NewStager(store ObjectStore, presignTTL time.Duration, limit int, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	if presignTTL <= 0 {
		presignTTL = constants.PresignTTLSecs * time.Second
	}
	if limit <= 0 {
		limit = constants.StageConcurrency
	}
	return &Stager{store: store, presignTTL: presignTTL, limit: limit, log: logger}
}

// Stage uploads each image under a fresh key. Uploads run in a bounded pool;
// completion order does not matter, but the returned slice preserves the
// input (page) order and the call blocks until every upload finishes.
func (s *Stager) Stage(ctx context.Context, requestID string, images [][]byte) ([]entity.StagedMedia, error) {
	if len(images) == 0 {
		return nil, nil
	}

	start := time.Now()
	refs := make([]entity.StagedMedia, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, img := range images {
		key := stageKey(requestID)
		refs[i] = entity.StagedMedia{Key: key, MimeType: constants.StagedImageMime}
		g.Go(func() error {
			if err := s.store.Put(gctx, key, img, constants.StagedImageMime); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("stage.upload_failed", "request_id", requestID, "error", err)
		return nil, err
	}

	s.log.Info("stage.uploaded",
		"request_id", requestID,
		"count", len(refs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return refs, nil
}

// Presign returns short-lived retrieval URLs keyed by staged reference.
// Consumers must use a URL within the TTL window or request a fresh one.
func (s *Stager) Presign(refs []entity.StagedMedia) (map[string]string, error) {
	urls := make(map[string]string, len(refs))
	for _, ref := range refs {
		u, err := s.store.SignedGetURL(ref.Key, s.presignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", ref.Key, err)
		}
		urls[ref.Key] = u
	}
	return urls, nil
}

// stageKey builds a unique object key scoped to the request.
func stageKey(requestID string) string {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return requestID + "/" + uuid.NewString() + ".png"
}
