package entity

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
)

// Document is one uploaded file. Treat it as read-only once built.
type Document struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Kind    constants.DocumentKind `json:"kind"`
	Content []byte                 `json:"-"`
}

// NewDocument builds a Document, deriving its kind from the file extension.
func NewDocument(name string, content []byte) Document {
	return Document{
		ID:      uuid.NewString(),
		Name:    filepath.Base(name),
		Kind:    constants.KindFromName(name),
		Content: content,
	}
}

// LoadDocument reads a document from disk.
func LoadDocument(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return NewDocument(path, b), nil
}

// PageImage is one rendered page, in document page order.
type PageImage struct {
	Index    int    `json:"index"`
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// AcquiredText is the plain text obtained from a document together with how it was obtained.
type AcquiredText struct {
	DocumentID string
	Text       string
	Provenance constants.Provenance
	// Length is the trimmed rune count of Text.
	Length   int
	Warnings []string
}
