package schemasvc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/common"
	"github.com/peekwez/docai/internal/entity"
)

var validDefinition = json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`)

type memSchemaRepo struct {
	rows map[string]*entity.Schema
}

func newMemSchemaRepo() *memSchemaRepo {
	return &memSchemaRepo{rows: map[string]*entity.Schema{}}
}

func key(name, version string) string { return name + "/" + version }

func (m *memSchemaRepo) Create(_ context.Context, s *entity.Schema) error {
	cp := *s
	m.rows[key(s.Name, s.Version)] = &cp
	return nil
}

func (m *memSchemaRepo) Get(_ context.Context, name, version string) (*entity.Schema, error) {
	return m.rows[key(name, version)], nil
}

func (m *memSchemaRepo) ListByName(_ context.Context, name string) ([]entity.Schema, error) {
	var out []entity.Schema
	for _, s := range m.rows {
		if s.Name == name {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSchemaRepo) MarkDeleted(_ context.Context, name, version string) error {
	if s, ok := m.rows[key(name, version)]; ok {
		s.Status = constants.SchemaStatusDeleted
	}
	return nil
}

// byteCounter charges one token per byte, which keeps counts predictable
// without loading a real encoding.
type byteCounter struct{}

func (byteCounter) Count(text string) (int, error) {
	return len(text), nil
}

func newTestService(limit int) (*Service, *memSchemaRepo) {
	repo := newMemSchemaRepo()
	return NewService(repo, byteCounter{}, limit, nil), repo
}

func TestCreateSchema(t *testing.T) {
	svc, repo := newTestService(100)

	schema, err := svc.Create(context.Background(), "person", "a person", validDefinition)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schema.Version) != 10 {
		t.Errorf("version = %q, want 10 chars", schema.Version)
	}
	if schema.Status != constants.SchemaStatusActive {
		t.Errorf("status = %s, want ACTIVE", schema.Status)
	}
	if schema.TokenCount <= 0 {
		t.Errorf("token count = %d, want > 0", schema.TokenCount)
	}
	if repo.rows[key("person", schema.Version)] == nil {
		t.Error("schema not persisted")
	}
}

func TestCreateSchemaVersionsAreIndependent(t *testing.T) {
	svc, _ := newTestService(100)

	a, err := svc.Create(context.Background(), "person", "", validDefinition)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := svc.Create(context.Background(), "person", "", validDefinition)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Version == b.Version {
		t.Errorf("both creates produced version %q", a.Version)
	}

	list, err := svc.List(context.Background(), "person")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("versions = %d, want 2", len(list))
	}
}

func TestCreateSchemaInvalidDefinition(t *testing.T) {
	svc, _ := newTestService(100)

	_, err := svc.Create(context.Background(), "bad", "", json.RawMessage(`{"type": 12}`))
	de, ok := common.AsDomain(err)
	if !ok || de.Name != common.ErrNameInvalidSchemaDefinition {
		t.Fatalf("error = %v, want InvalidSchemaDefinition", err)
	}
}

func TestCreateSchemaTooLarge(t *testing.T) {
	svc, _ := newTestService(1)

	_, err := svc.Create(context.Background(), "big", "", validDefinition)
	de, ok := common.AsDomain(err)
	if !ok || de.Name != common.ErrNameSchemaTooLarge {
		t.Fatalf("error = %v, want SchemaDefinitionTooLarge", err)
	}
}

func TestGetUnknownSchema(t *testing.T) {
	svc, _ := newTestService(100)

	_, err := svc.Get(context.Background(), "ghost", "v0")
	de, ok := common.AsDomain(err)
	if !ok || de.Name != common.ErrNameSchemaDoesNotExist {
		t.Fatalf("error = %v, want SchemaDoesNotExist", err)
	}
}

func TestDeleteHidesSchemaFromGet(t *testing.T) {
	svc, _ := newTestService(100)

	schema, err := svc.Create(context.Background(), "person", "", validDefinition)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(context.Background(), "person", schema.Version); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Deleted schemas are invisible to the extraction lookup.
	_, err = svc.Get(context.Background(), "person", schema.Version)
	de, ok := common.AsDomain(err)
	if !ok || de.Name != common.ErrNameSchemaDoesNotExist {
		t.Fatalf("error = %v, want SchemaDoesNotExist", err)
	}

	// But still listed, with their status visible.
	list, err := svc.List(context.Background(), "person")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Status != constants.SchemaStatusDeleted {
		t.Errorf("list = %+v, want one DELETED row", list)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, _ := newTestService(100)

	schema, err := svc.Create(context.Background(), "person", "", validDefinition)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.Delete(context.Background(), "person", schema.Version); err != nil {
			t.Fatalf("delete %d: unexpected error: %v", i, err)
		}
	}
}

func TestDeleteUnknownSchema(t *testing.T) {
	svc, _ := newTestService(100)

	err := svc.Delete(context.Background(), "ghost", "v0")
	de, ok := common.AsDomain(err)
	if !ok || de.Name != common.ErrNameSchemaDoesNotExist {
		t.Fatalf("error = %v, want SchemaDoesNotExist", err)
	}
}
