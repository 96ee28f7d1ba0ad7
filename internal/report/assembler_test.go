package report

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/greenloop/esgpilot/internal/esg"
)

type fakeData struct {
	esg.DataService

	snapshot    *esg.MetricsSnapshot
	snapshotErr error
	saved       *esg.Report
	saveErr     error
	saveID      uuid.UUID
}

func (f *fakeData) MetricsSnapshot(context.Context, string) (*esg.MetricsSnapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeData) SaveReport(_ context.Context, r *esg.Report) (uuid.UUID, error) {
	f.saved = r
	return f.saveID, f.saveErr
}

type fakeEnricher struct {
	content []byte
	err     error
}

func (f *fakeEnricher) Enrich(context.Context, *esg.MetricsSnapshot) ([]byte, error) {
	return f.content, f.err
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	wantID := uuid.New()
	data := &fakeData{
		snapshot: &esg.MetricsSnapshot{Entity: esg.Entity{ID: "ent-1", Name: "GreenLoop"}},
		saveID:   wantID,
	}
	enricher := &fakeEnricher{content: []byte(`{"environment":{}}`)}
	a := NewAssembler(data, enricher, nil)

	id, err := a.Assemble(context.Background(), "ent-1", "comprehensive")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if id != wantID {
		t.Errorf("id = %v, want %v", id, wantID)
	}

	if data.saved == nil {
		t.Fatal("report not saved")
	}
	if data.saved.ReportType != "comprehensive" || data.saved.Format != "json" {
		t.Errorf("saved report = %+v", data.saved)
	}
	if string(data.saved.Content) != `{"environment":{}}` {
		t.Errorf("content = %s", data.saved.Content)
	}
	if data.saved.GeneratedBy != "chatbot" {
		t.Errorf("GeneratedBy = %q", data.saved.GeneratedBy)
	}
}

func TestAssembleSnapshotFailure(t *testing.T) {
	t.Parallel()

	data := &fakeData{snapshotErr: esg.ErrEntityNotFound}
	a := NewAssembler(data, &fakeEnricher{}, nil)

	_, err := a.Assemble(context.Background(), "missing", "comprehensive")
	if !errors.Is(err, esg.ErrEntityNotFound) {
		t.Errorf("err = %v, want ErrEntityNotFound", err)
	}
}

func TestAssembleEnrichFailure(t *testing.T) {
	t.Parallel()

	data := &fakeData{snapshot: &esg.MetricsSnapshot{Entity: esg.Entity{Name: "X"}}}
	a := NewAssembler(data, &fakeEnricher{err: errors.New("model down")}, nil)

	if _, err := a.Assemble(context.Background(), "ent-1", "comprehensive"); err == nil {
		t.Error("enrichment failure should fail assembly")
	}
	if data.saved != nil {
		t.Error("nothing should be saved when enrichment fails")
	}
}
