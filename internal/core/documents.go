package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"diffractcore/internal/blob"
	"diffractcore/internal/cif"
	"diffractcore/internal/codec"
	"diffractcore/internal/infra/persistence"
	"diffractcore/internal/structure"
	"diffractcore/pkg/domain"
)

// ArchiveContentType labels project archives in blob stores.
const ArchiveContentType = "application/vnd.diffractcore.archive"

// ExportDocument renders a project as indented JSON.
func (s *Service) ExportDocument(ctx context.Context, projectID string) ([]byte, error) {
	doc, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ImportDocument creates a project from a JSON document, optionally inside
// a codec frame. An existing project with the same id is not replaced.
func (s *Service) ImportDocument(ctx context.Context, data []byte) (ProjectDocument, Result, error) {
	raw, err := codec.Decode(data)
	if err != nil {
		return ProjectDocument{}, Result{}, domain.Wrap(domain.CodeImportError, "document", err)
	}
	var doc ProjectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ProjectDocument{}, Result{}, domain.Wrap(domain.CodeImportError, "document", err)
	}
	return s.createFromDocument(ctx, "import_document", doc)
}

func (s *Service) createFromDocument(ctx context.Context, op string, doc ProjectDocument) (ProjectDocument, Result, error) {
	var (
		res Result
		out ProjectDocument
	)
	err := s.run(ctx, op, doc.ID, func(ctx context.Context) error {
		p, err := ProjectFromDocument(doc)
		if err != nil {
			return err
		}
		if res, err = s.store.Create(ctx, p); err != nil {
			return err
		}
		out = p.Document()
		return nil
	})
	s.logViolations(op, res)
	return out, res, err
}

// ExportPhaseCIF writes a CIF document holding a project block followed by
// one block per phase. No phase ids exports every phase.
func (s *Service) ExportPhaseCIF(ctx context.Context, projectID string, w io.Writer, phaseIDs ...string) error {
	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return err
	}
	phases := p.Phases
	if len(phaseIDs) > 0 {
		phases = make([]*structure.Phase, 0, len(phaseIDs))
		for _, id := range phaseIDs {
			ph, err := p.phase(id)
			if err != nil {
				return err
			}
			phases = append(phases, ph)
		}
	}
	snaps := make([]structure.Snapshot, 0, len(phases))
	for _, ph := range phases {
		snap, err := ph.Snapshot(p.Params)
		if err != nil {
			return err
		}
		snaps = append(snaps, snap)
	}
	allPhases := make([]string, len(p.Phases))
	for i, ph := range p.Phases {
		allPhases[i] = ph.ID
	}
	exps := make([]string, len(p.Experiments))
	for i, e := range p.Experiments {
		exps[i] = e.ID
	}
	doc := cif.PhaseDocument(snaps...)
	doc.Blocks = append([]*cif.Block{cif.ProjectBlock(p.ID, p.Info, allPhases, exps)}, doc.Blocks...)
	return doc.Write(w)
}

func archivePrefix(projectID string) string { return "archives/" + projectID + "/" }

func (s *Service) blobStore() (blob.Store, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("archives: %w", blob.ErrUnsupported)
	}
	return s.blobs, nil
}

// ArchiveProject stores a compressed snapshot of a project in the blob
// store under archives/<project>/<timestamp>.dfc.
func (s *Service) ArchiveProject(ctx context.Context, projectID string) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, "archive_project", projectID, func(ctx context.Context) error {
		store, err := s.blobStore()
		if err != nil {
			return err
		}
		p, err := s.store.Get(ctx, projectID)
		if err != nil {
			return err
		}
		payload, err := persistence.Encoding{Compression: s.compression}.Marshal(p.Document())
		if err != nil {
			return err
		}
		key := archivePrefix(projectID) + s.clock.Now().UTC().Format("20060102T150405.000000000Z") + ".dfc"
		info, err = store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: ArchiveContentType,
			Metadata: map[string]string{
				blob.MetaChecksum:    codec.ChecksumHex(payload),
				blob.MetaProjectID:   projectID,
				blob.MetaCompression: s.compression.String(),
			},
		})
		if err != nil {
			return err
		}
		s.logger.Info("project archived", "project_id", projectID, "key", info.Key, "size", info.Size)
		return nil
	})
	return info, err
}

// ListArchives returns the archives of a project ordered by key, oldest
// first.
func (s *Service) ListArchives(ctx context.Context, projectID string) ([]blob.Info, error) {
	store, err := s.blobStore()
	if err != nil {
		return nil, err
	}
	return store.List(ctx, archivePrefix(projectID))
}

// RestoreArchive recreates a project from an archive. A non-empty asID
// restores under a new id; otherwise the archived id is used and must be
// free.
func (s *Service) RestoreArchive(ctx context.Context, key, asID string) (ProjectDocument, Result, error) {
	store, err := s.blobStore()
	if err != nil {
		return ProjectDocument{}, Result{}, err
	}
	info, rc, err := store.Get(ctx, key)
	if err != nil {
		return ProjectDocument{}, Result{}, err
	}
	payload, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return ProjectDocument{}, Result{}, err
	}
	if want := info.Metadata[blob.MetaChecksum]; want != "" && want != codec.ChecksumHex(payload) {
		return ProjectDocument{}, Result{}, domain.Newf(domain.CodeMalformedData, key, "archive checksum mismatch")
	}
	doc, err := persistence.Encoding{}.Unmarshal(payload)
	if err != nil {
		return ProjectDocument{}, Result{}, err
	}
	if asID != "" {
		doc.ID = asID
	}
	return s.createFromDocument(ctx, "restore_archive", doc)
}
