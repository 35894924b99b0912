package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const documentContentType = "application/pdf"

var (
	// ErrNotPDF means the uploaded file's extension is outside the
	// allow-set; the caller treats the document slot as not provided.
	ErrNotPDF = errors.New("only PDF documents are accepted")

	// ErrDocumentNotFound means the name does not resolve to a stored file.
	ErrDocumentNotFound = errors.New("document not found")
)

// Document is an opened stored document ready for streaming.
type Document struct {
	Reader      io.ReadCloser
	Size        int64
	ContentType string
}

// DocumentStore validates, persists and serves uploaded documents under
// collision-resistant generated names.
type DocumentStore interface {
	// Save accepts a PDF upload and returns the generated storage name,
	// never the client path. Non-PDF uploads fail with ErrNotPDF.
	Save(fileHeader *multipart.FileHeader) (string, error)

	// Open resolves a generated name to the stored bytes, strictly within
	// the store's own namespace. ErrDocumentNotFound otherwise.
	Open(name string) (*Document, error)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// allowedDocument checks the extension against the allow-set, which is
// just {pdf}, case-insensitively.
func allowedDocument(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// storedDocumentName sanitizes the client filename (path components and
// unsafe characters stripped) and prefixes a sortable timestamp so that
// concurrent uploads of the same original name do not collide.
func storedDocumentName(clientName string) string {
	base := filepath.Base(strings.ReplaceAll(clientName, "\\", "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	return fmt.Sprintf("%s_%s", time.Now().Format("20060102150405"), base)
}

// validDocumentName rejects anything that is not a bare generated name, so
// caller-supplied values can never traverse outside the store.
func validDocumentName(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

// LocalDocumentStore stores documents in a private directory on disk.
type LocalDocumentStore struct {
	dir    string
	logger *zap.Logger
}

// NewLocalDocumentStore creates a document store rooted at dir.
func NewLocalDocumentStore(dir string, logger *zap.Logger) *LocalDocumentStore {
	return &LocalDocumentStore{
		dir:    dir,
		logger: logger.With(zap.String("service", "documents")),
	}
}

// Save validates and persists an uploaded document, returning the
// generated storage name.
func (s *LocalDocumentStore) Save(fileHeader *multipart.FileHeader) (name string, err error) {
	if !allowedDocument(fileHeader.Filename) {
		return "", ErrNotPDF
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name = storedDocumentName(fileHeader.Filename)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			s.logger.Warn("Failed to close uploaded file", zap.Error(closeErr))
		}
	}()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("Document stored",
		zap.String("name", name),
		zap.Int64("size", fileHeader.Size))

	return name, nil
}

// Open resolves a stored name against the upload directory.
func (s *LocalDocumentStore) Open(name string) (*Document, error) {
	if !validDocumentName(name) {
		return nil, ErrDocumentNotFound
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, ErrDocumentNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ErrDocumentNotFound
	}

	return &Document{
		Reader:      f,
		Size:        info.Size(),
		ContentType: documentContentType,
	}, nil
}
