package core

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"diffractcore/internal/blob"
	"diffractcore/internal/codec"
	blobmemory "diffractcore/internal/infra/blob/memory"
	"diffractcore/pkg/domain"
)

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestService(t)
	cubicProject(t, src, "p")
	if _, _, err := src.LinkParameter(ctx, "p", "experiments.d1a.resolution.v", "experiments.d1a.resolution.u * -2"); err != nil {
		t.Fatalf("link: %v", err)
	}
	lower := 50.0
	if _, _, err := src.SetParameterBounds(ctx, "p", scaleID, &lower, nil); err != nil {
		t.Fatalf("bounds: %v", err)
	}
	data, err := src.ExportDocument(ctx, "p")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newTestService(t)
	got, _, err := dst.ImportDocument(ctx, data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	want, _ := src.GetProject(ctx, "p")
	if !reflect.DeepEqual(want.Parameters, got.Parameters) {
		t.Fatalf("parameters differ after round trip")
	}
	if !reflect.DeepEqual(want.Phases, got.Phases) || !reflect.DeepEqual(want.Experiments, got.Experiments) {
		t.Fatalf("phases or experiments differ after round trip")
	}

	a, _ := src.Calculate(ctx, "p", "d1a")
	b, _ := dst.Calculate(ctx, "p", "d1a")
	if !reflect.DeepEqual(a.Pattern.Total, b.Pattern.Total) {
		t.Fatalf("restored project simulates differently")
	}

	if _, _, err := dst.ImportDocument(ctx, data); !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected duplicate id, got %v", err)
	}
	framed, err := codec.Encode(codec.S2, data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, err := newTestService(t).ImportDocument(ctx, framed); err != nil {
		t.Fatalf("import framed document: %v", err)
	}
	if _, _, err := dst.ImportDocument(ctx, []byte("{not json")); !errors.Is(err, domain.ErrImport) {
		t.Fatalf("expected import error, got %v", err)
	}
}

func TestImportDocumentRejectsDanglingLinks(t *testing.T) {
	svc := newTestService(t)
	doc := `{"schema_version":1,"id":"p","experiments":[{"id":"d1a","phases":[{"phase_id":"ghost","scale":"x"}]}]}`
	if _, _, err := svc.ImportDocument(context.Background(), []byte(doc)); err == nil {
		t.Fatalf("expected dangling reference to be rejected")
	}
	if _, err := svc.GetProject(context.Background(), "p"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("rejected document was stored: %v", err)
	}
}

func TestExportPhaseCIF(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	cubicProject(t, svc, "p")
	var buf bytes.Buffer
	if err := svc.ExportPhaseCIF(ctx, "p", &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"data_p", "_project_name", "data_lbco", "P m -3 m", "_atom_site_label", "La1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("cif output misses %q:\n%s", want, out)
		}
	}
	if err := svc.ExportPhaseCIF(ctx, "p", &buf, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown phase, got %v", err)
	}
}

func TestArchiveAndRestore(t *testing.T) {
	ctx := context.Background()
	store := blobmemory.New()
	svc := newTestService(t, WithBlobStore(store), WithArchiveCompression(codec.LZ4))
	cubicProject(t, svc, "p")

	info, err := svc.ArchiveProject(ctx, "p")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !strings.HasPrefix(info.Key, "archives/p/") || info.Metadata[blob.MetaCompression] != codec.LZ4.String() {
		t.Fatalf("unexpected archive info %+v", info)
	}
	list, err := svc.ListArchives(ctx, "p")
	if err != nil || len(list) != 1 {
		t.Fatalf("list archives: %v %v", list, err)
	}

	if _, _, err := svc.RestoreArchive(ctx, info.Key, ""); !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected restore over a live project to fail, got %v", err)
	}
	doc, _, err := svc.RestoreArchive(ctx, info.Key, "copy")
	if err != nil || doc.ID != "copy" {
		t.Fatalf("restore as copy: %+v %v", doc.ID, err)
	}
	if err := svc.DeleteProject(ctx, "p"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := svc.RestoreArchive(ctx, info.Key, ""); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := svc.Calculate(ctx, "p", "d1a"); err != nil {
		t.Fatalf("restored project does not calculate: %v", err)
	}
}

func TestArchiveChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	store := blobmemory.New()
	svc := newTestService(t, WithBlobStore(store))
	mustCreate(t, svc, "p")
	payload := []byte(`{"schema_version":1,"id":"q"}`)
	_, err := store.Put(ctx, "archives/q/1.dfc", bytes.NewReader(payload), blob.PutOptions{
		Metadata: map[string]string{blob.MetaChecksum: "0000000000000000"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, _, err := svc.RestoreArchive(ctx, "archives/q/1.dfc", ""); !errors.Is(err, domain.ErrMalformedData) {
		t.Fatalf("expected checksum failure, got %v", err)
	}
}

func TestArchivesNeedBlobStore(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "p")
	if _, err := svc.ArchiveProject(context.Background(), "p"); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
