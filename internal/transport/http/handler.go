package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/entity"
)

// ExtractionService is the orchestration surface the handlers invoke.
type ExtractionService interface {
	ExtractNow(ctx context.Context, requestID string, ref entity.SchemaRef, doc entity.Document) (*entity.ExtractionResult, error)
	Enqueue(ctx context.Context, requestID string, ref entity.SchemaRef, doc entity.Document) (*entity.JobAck, error)
	GetResult(ctx context.Context, requestID string) (*entity.StatusResult, error)
}

// SchemaService is the registry surface the handlers invoke.
type SchemaService interface {
	Create(ctx context.Context, name, description string, definition json.RawMessage) (*entity.Schema, error)
	Get(ctx context.Context, name, version string) (*entity.Schema, error)
	List(ctx context.Context, name string) ([]entity.Schema, error)
	Delete(ctx context.Context, name, version string) error
}

type Handler struct {
	extract ExtractionService
	schemas SchemaService
}

func NewHandler(extract ExtractionService, schemas SchemaService) *Handler {
	return &Handler{extract: extract, schemas: schemas}
}

type createSchemaDTO struct {
	SchemaName        string          `json:"schema_name"`
	SchemaDescription string          `json:"schema_description"`
	SchemaDefinition  json.RawMessage `json:"schema_definition"`
}

type createSchemaResp struct {
	SchemaName     string `json:"schema_name"`
	SchemaVersion  string `json:"schema_version"`
	NumberOfTokens int    `json:"number_of_tokens"`
}

type schemaRefDTO struct {
	SchemaName    string `json:"schema_name"`
	SchemaVersion string `json:"schema_version"`
}

type extractDTO struct {
	SchemaName    string `json:"schema_name"`
	SchemaVersion string `json:"schema_version"`
	Content       string `json:"content"`
	MimeType      string `json:"mime_type"`
}

type extractResp struct {
	Data json.RawMessage `json:"data"`
}

type getResultDTO struct {
	RequestID string `json:"request_id"`
}

func (h *Handler) CreateSchema(w http.ResponseWriter, r *http.Request) {
	var dto createSchemaDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if dto.SchemaName == "" || len(dto.SchemaDefinition) == 0 {
		writeBadRequest(w, "schema_name and schema_definition are required")
		return
	}

	schema, err := h.schemas.Create(r.Context(), dto.SchemaName, dto.SchemaDescription, dto.SchemaDefinition)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSchemaResp{
		SchemaName:     schema.Name,
		SchemaVersion:  schema.Version,
		NumberOfTokens: schema.TokenCount,
	})
}

func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	var dto schemaRefDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	schema, err := h.schemas.Get(r.Context(), dto.SchemaName, dto.SchemaVersion)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("schema_name")
	if name == "" {
		writeBadRequest(w, "schema_name is required")
		return
	}
	schemas, err := h.schemas.List(r.Context(), name)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(schemas),
		"schemas": schemas,
	})
}

func (h *Handler) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	var dto schemaRefDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if err := h.schemas.Delete(r.Context(), dto.SchemaName, dto.SchemaVersion); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schema_name":    dto.SchemaName,
		"schema_version": dto.SchemaVersion,
		"schema_status":  constants.SchemaStatusDeleted,
	})
}

func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	dto, ok := decodeExtract(w, r)
	if !ok {
		return
	}

	requestID := uuid.NewString()
	result, err := h.extract.ExtractNow(r.Context(), requestID,
		entity.SchemaRef{Name: dto.SchemaName, Version: dto.SchemaVersion},
		entity.Document{Content: dto.Content, MimeType: dto.MimeType},
	)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractResp{Data: result.Result})
}

func (h *Handler) ExtractBatch(w http.ResponseWriter, r *http.Request) {
	dto, ok := decodeExtract(w, r)
	if !ok {
		return
	}

	requestID := uuid.NewString()
	ack, err := h.extract.Enqueue(r.Context(), requestID,
		entity.SchemaRef{Name: dto.SchemaName, Version: dto.SchemaVersion},
		entity.Document{Content: dto.Content, MimeType: dto.MimeType},
	)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	var dto getResultDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if dto.RequestID == "" {
		writeBadRequest(w, "request_id is required")
		return
	}

	res, err := h.extract.GetResult(r.Context(), dto.RequestID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeExtract is the shared parse+validate stage for both extract
// endpoints; validation failures short-circuit before any state mutation.
func decodeExtract(w http.ResponseWriter, r *http.Request) (extractDTO, bool) {
	var dto extractDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "invalid json")
		return dto, false
	}
	if dto.SchemaName == "" || dto.SchemaVersion == "" {
		writeBadRequest(w, "schema_name and schema_version are required")
		return dto, false
	}
	if dto.Content == "" || dto.MimeType == "" {
		writeBadRequest(w, "content and mime_type are required")
		return dto, false
	}
	return dto, true
}
