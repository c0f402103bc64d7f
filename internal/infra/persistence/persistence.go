// Package persistence holds what the project repositories share: the byte
// encoding of stored documents and small error helpers.
package persistence

import (
	"encoding/json"
	"fmt"

	"diffractcore/internal/codec"
	"diffractcore/pkg/domain"
)

// Encoding turns documents into stored payloads.
type Encoding struct {
	Compression codec.Algorithm
}

// Marshal renders doc as a codec frame.
func (e Encoding) Marshal(doc domain.ProjectDocument) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal project %s: %w", doc.ID, err)
	}
	return codec.Encode(e.Compression, raw)
}

// Unmarshal reads a payload written by Marshal, or plain JSON.
func (Encoding) Unmarshal(payload []byte) (domain.ProjectDocument, error) {
	raw, err := codec.Decode(payload)
	if err != nil {
		return domain.ProjectDocument{}, err
	}
	var doc domain.ProjectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.ProjectDocument{}, domain.Wrap(domain.CodeMalformedData, "document", err)
	}
	return doc, nil
}

// NotFound is the error drivers return from Load for unknown ids.
func NotFound(id string) error {
	return domain.Newf(domain.CodeNotFound, id, "project not found")
}

// CheckID rejects empty identifiers before they reach a backend.
func CheckID(id string) error {
	if id == "" {
		return domain.Newf(domain.CodeMalformedData, "project", "empty project id")
	}
	return nil
}
