package schemasvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/common"
	"github.com/peekwez/docai/internal/entity"
	"github.com/peekwez/docai/internal/llm"
	"github.com/peekwez/docai/internal/repository"
)

// Service is the schema registry. Schemas are immutable once created; the
// only mutation is the soft delete.
type Service struct {
	repo       repository.SchemaRepository
	tokens     llm.TokenCounter
	tokenLimit int
	log        *slog.Logger
}

func NewService(repo repository.SchemaRepository, tokens llm.TokenCounter, tokenLimit int, logger *slog.Logger) *Service {
	if tokenLimit <= 0 {
		tokenLimit = constants.SchemaTokenLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, tokenLimit: tokenLimit, log: logger}
}

// Create validates the definition structurally, derives the token count, and
// persists the schema under a fresh version. Creation fails when the
// definition is not a valid draft 2020-12 schema or exceeds the token budget.
func (s *Service) Create(ctx context.Context, name, description string, definition json.RawMessage) (*entity.Schema, error) {
	if err := llm.CompileSchema(definition); err != nil {
		return nil, err
	}

	canonical, err := canonicalJSON(definition)
	if err != nil {
		return nil, common.InvalidSchemaDefinition(err)
	}
	count, err := s.tokens.Count(canonical)
	if err != nil {
		return nil, fmt.Errorf("count schema tokens: %w", err)
	}
	if count > s.tokenLimit {
		return nil, common.SchemaDefinitionTooLarge(count, s.tokenLimit)
	}

	schema := &entity.Schema{
		Name:        name,
		Version:     newVersion(),
		Description: description,
		Definition:  definition,
		Status:      constants.SchemaStatusActive,
		TokenCount:  count,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// Get returns the schema, failing with SchemaDoesNotExist when the row is
// absent or soft-deleted. This is the lookup the extraction pipeline uses.
func (s *Service) Get(ctx context.Context, name, version string) (*entity.Schema, error) {
	schema, err := s.repo.Get(ctx, name, version)
	if err != nil {
		return nil, err
	}
	if schema == nil || schema.IsDeleted() {
		return nil, common.SchemaDoesNotExist(name, version)
	}
	return schema, nil
}

// List returns every version recorded under the name, newest first,
// including soft-deleted rows (status is visible to the caller).
func (s *Service) List(ctx context.Context, name string) ([]entity.Schema, error) {
	return s.repo.ListByName(ctx, name)
}

// Delete soft-deletes a schema version. Deleting an already-deleted schema
// is a no-op; deleting an unknown one is SchemaDoesNotExist.
func (s *Service) Delete(ctx context.Context, name, version string) error {
	schema, err := s.repo.Get(ctx, name, version)
	if err != nil {
		return err
	}
	if schema == nil {
		return common.SchemaDoesNotExist(name, version)
	}
	if schema.IsDeleted() {
		return nil
	}
	return s.repo.MarkDeleted(ctx, name, version)
}

// canonicalJSON re-encodes the definition so token counts do not depend on
// caller whitespace.
func canonicalJSON(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const versionAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newVersion generates a 10-character alphanumeric version id.
func newVersion() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = versionAlphabet[rand.IntN(len(versionAlphabet))]
	}
	return string(b)
}
