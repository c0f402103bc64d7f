package integration

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"diffractcore/internal/blob"
	"diffractcore/internal/config"
	"diffractcore/internal/core"
	"diffractcore/internal/infra/blob/s3"
	"diffractcore/pkg/domain"
)

const cubicCIF = `data_lbco
_space_group_name_H-M_alt  'P m -3 m'
_cell_length_a   3.89
_cell_length_b   3.89
_cell_length_c   3.89
_cell_angle_alpha 90
_cell_angle_beta  90
_cell_angle_gamma 90

loop_
_atom_site_label
_atom_site_type_symbol
_atom_site_fract_x
_atom_site_fract_y
_atom_site_fract_z
_atom_site_occupancy
_atom_site_U_iso_or_equiv
La1 La 0   0   0   0.5 0.006
Ba1 Ba 0   0   0   0.5 0.006
Co1 Co 0.5 0.5 0.5 1   0.003
O1  O  0   0.5 0.5 1   0.012
`

const cellA = "phases.lbco.cell.length_a"

func buildProject(t *testing.T, svc *core.Service) {
	t.Helper()
	ctx := context.Background()
	if _, _, err := svc.CreateProject(ctx, "p", core.ProjectInfo{Name: "LBCO"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.ImportCIF(ctx, "p", strings.NewReader(cubicCIF)); err != nil {
		t.Fatalf("import cif: %v", err)
	}
	if _, _, err := svc.AddExperiment(ctx, "p", "d1a", ""); err != nil {
		t.Fatalf("add experiment: %v", err)
	}
	if _, err := svc.SetRange(ctx, "p", "d1a", domain.SimulationRange{Min: 20, Max: 60, Step: 0.5}); err != nil {
		t.Fatalf("set range: %v", err)
	}
	if _, err := svc.LinkPhase(ctx, "p", "d1a", "lbco"); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, _, err := svc.SetParameter(ctx, "p", cellA, 3.9); err != nil {
		t.Fatalf("set a: %v", err)
	}
}

func value(t *testing.T, svc *core.Service, id string) float64 {
	t.Helper()
	recs, err := svc.Parameters(context.Background(), "p")
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	for _, r := range recs {
		if r.ID == id {
			return r.Value
		}
	}
	t.Fatalf("parameter %s missing", id)
	return 0
}

// TestIntegrationSmoke runs a minimal model/calculate/persist cycle for each
// repository driver and an archive round trip for each blob backend.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	repoVariants := []struct {
		name    string
		durable bool
		storage func(dir string) config.Storage
	}{
		{"memory", false, func(string) config.Storage {
			return config.Storage{Driver: config.StorageMemory, Compression: "none"}
		}},
		{"sqlite", true, func(dir string) config.Storage {
			return config.Storage{Driver: config.StorageSQLite, SQLitePath: filepath.Join(dir, "p.db"), Compression: "zstd"}
		}},
		{"badger", true, func(dir string) config.Storage {
			return config.Storage{Driver: config.StorageBadger, BadgerPath: filepath.Join(dir, "badger"), Compression: "s2"}
		}},
	}

	for _, rv := range repoVariants {
		t.Run(rv.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage = rv.storage(t.TempDir())
			metrics := core.NewExpvarMetricsRecorder("")
			var traces bytes.Buffer
			tracer := core.NewJSONTracer(&traces)

			repo, err := cfg.OpenRepository(ctx, nil)
			if err != nil {
				t.Fatalf("open repository: %v", err)
			}
			svc := core.NewService(repo, core.WithRulesEngine(core.NewDefaultRulesEngine()),
				core.WithMetricsRecorder(metrics), core.WithTracer(tracer))
			buildProject(t, svc)
			c, err := svc.Calculate(ctx, "p", "d1a")
			if err != nil {
				t.Fatalf("calculate: %v", err)
			}
			if len(c.Pattern.X) != 81 || len(c.Pattern.Reflections) == 0 {
				t.Fatalf("unexpected pattern: %d points, %d reflections", len(c.Pattern.X), len(c.Pattern.Reflections))
			}
			if snap := metrics.Snapshot(); snap.Results["import_cif"][core.AuditStatusSuccess] == 0 {
				t.Fatalf("import_cif not recorded: %+v", snap.Results)
			}
			if !strings.Contains(traces.String(), "set_parameter") {
				t.Fatalf("trace output misses set_parameter")
			}
			if err := svc.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if !rv.durable {
				return
			}

			repo, err = cfg.OpenRepository(ctx, nil)
			if err != nil {
				t.Fatalf("reopen repository: %v", err)
			}
			svc = core.NewService(repo)
			defer svc.Close()
			if got := value(t, svc, cellA); got != 3.9 {
				t.Fatalf("cell a not persisted: %v", got)
			}
			if got := value(t, svc, "phases.lbco.cell.length_c"); got != 3.9 {
				t.Fatalf("cubic constraint lost after reload: %v", got)
			}
			again, err := svc.Calculate(ctx, "p", "d1a")
			if err != nil {
				t.Fatalf("calculate after reload: %v", err)
			}
			for i := range c.Pattern.Total {
				if math.Float64bits(c.Pattern.Total[i]) != math.Float64bits(again.Pattern.Total[i]) {
					t.Fatalf("pattern differs after reload at %d", i)
				}
			}
		})
	}

	blobVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{"memory", func(*testing.T) blob.Store {
			s, err := blob.Open(ctx, blob.Config{Driver: string(blob.DriverMemory)})
			if err != nil {
				t.Fatalf("open memory blob: %v", err)
			}
			return s
		}},
		{"filesystem", func(t *testing.T) blob.Store {
			s, err := blob.Open(ctx, blob.Config{Driver: string(blob.DriverFilesystem), FSRoot: t.TempDir()})
			if err != nil {
				t.Fatalf("open fs blob: %v", err)
			}
			return s
		}},
		{"mock-s3", func(*testing.T) blob.Store { return s3.NewMock() }},
	}

	for _, bv := range blobVariants {
		t.Run("archive-"+bv.name, func(t *testing.T) {
			svc := core.NewInMemoryService(core.NewDefaultRulesEngine(), core.WithBlobStore(bv.open(t)))
			defer svc.Close()
			buildProject(t, svc)
			info, err := svc.ArchiveProject(ctx, "p")
			if err != nil {
				t.Fatalf("archive: %v", err)
			}
			if info.Metadata[blob.MetaChecksum] == "" {
				t.Fatalf("checksum metadata missing: %+v", info)
			}
			list, err := svc.ListArchives(ctx, "p")
			if err != nil || len(list) != 1 || list[0].Key != info.Key {
				t.Fatalf("list archives: %+v %v", list, err)
			}
			doc, _, err := svc.RestoreArchive(ctx, info.Key, "restored")
			if err != nil {
				t.Fatalf("restore: %v", err)
			}
			if doc.ID != "restored" || len(doc.Phases) != 1 {
				t.Fatalf("unexpected restored document %+v", doc.Summary())
			}
		})
	}
}
