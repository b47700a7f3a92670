package indexer

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// DocumentType classifies a parsed source file.
type DocumentType string

const (
	DocumentTypeMarkdown   DocumentType = "markdown"
	DocumentTypeRST        DocumentType = "rst"
	DocumentTypeHTML       DocumentType = "html"
	DocumentTypeCode       DocumentType = "code"
	DocumentTypeStructured DocumentType = "structured" // yaml/json/xml
	DocumentTypePlain      DocumentType = "plain"
)

// maxDocumentBytes caps the raw content a DocumentProcessor will accept, per
// the size-capped input requirement.
const maxDocumentBytes = 1 << 20 // 1 MiB

// Document is a parsed source file at a given revision.
type Document struct {
	ID          string
	Repository  string
	FilePath    string
	Type        DocumentType
	Metadata    map[string]string // title, description, tags, category, language, framework, version, author, date, ...
	Content     string            // raw content, size-capped
	ChunkIDs    []string
	ModifiedAt  time.Time
	ContentHash string
}

// DocumentProcessor detects document type, extracts front matter, and splits
// content into overlapping, boundary-respecting chunks with stable IDs.
//
// process(path, bytes, repository) is pure with respect to its inputs:
// calling it twice on identical input yields identical document/chunk IDs
// and hashes.
type DocumentProcessor interface {
	Process(ctx context.Context, filePath string, content []byte, repository string) (Document, []Chunk, error)
}

// DefaultDocumentProcessor is the built-in DocumentProcessor. It dispatches
// structured (markdown/rst/html) documents to the heading-tree chunker,
// code documents to CodeChunker (language-aware AST/regex chunking, kept
// verbatim from the original code-indexing path), and everything else to a
// blank-line/character-count splitter.
type DefaultDocumentProcessor struct {
	maxChunkSize int
	overlapSize  int
	codeChunker  *CodeChunker
}

// NewDefaultDocumentProcessor builds a processor with the given chunk sizing.
// maxChunkSize defaults to 2000 chars, overlapSize to 200, matching spec
// defaults.
func NewDefaultDocumentProcessor(maxChunkSize, overlapSize int) *DefaultDocumentProcessor {
	if maxChunkSize <= 0 {
		maxChunkSize = 2000
	}
	if overlapSize < 0 {
		overlapSize = 200
	}
	return &DefaultDocumentProcessor{
		maxChunkSize: maxChunkSize,
		overlapSize:  overlapSize,
		codeChunker:  NewCodeChunker(maxChunkSize, overlapSize),
	}
}

// Process implements DocumentProcessor.
func (p *DefaultDocumentProcessor) Process(ctx context.Context, filePath string, content []byte, repository string) (Document, []Chunk, error) {
	if len(content) > maxDocumentBytes {
		content = content[:maxDocumentBytes]
	}

	docType := detectDocumentType(filePath, content)
	text := string(content)

	var meta map[string]string
	body := text
	if docType == DocumentTypeMarkdown {
		fm, rest := extractFrontMatter(text)
		meta = sanitizeFrontMatter(fm)
		body = rest
	}
	if meta == nil {
		meta = map[string]string{}
	}

	contentHash := ComputeContentHash(text)
	docID := ComputeDocumentID(repository, filePath, contentHash)

	var rawChunks []Chunk
	var err error
	switch docType {
	case DocumentTypeMarkdown, DocumentTypeRST, DocumentTypeHTML:
		rawChunks = chunkStructuredDocument(body, filePath, p.maxChunkSize, p.overlapSize)
	case DocumentTypeCode:
		rawChunks, err = p.codeChunker.Chunk(ctx, body, filePath)
		if err != nil {
			return Document{}, nil, err
		}
	default:
		rawChunks = chunkPlainText(body, filePath, p.maxChunkSize, p.overlapSize)
	}

	chunks := make([]Chunk, 0, len(rawChunks))
	chunkIDs := make([]string, 0, len(rawChunks))
	now := time.Now()
	for _, c := range rawChunks {
		c.Content = stripUnsafeMarkup(c.Content)
		c.DocumentID = docID
		c.Repository = repository
		c.FilePath = filePath
		c.IndexedAt = now
		c.Hash = ComputeContentHash(c.Content)
		c.ID = ComputeChunkID(docID, c.Content)
		if c.Metadata == nil {
			c.Metadata = map[string]string{}
		}
		for k, v := range meta {
			if _, exists := c.Metadata[k]; !exists {
				c.Metadata[k] = v
			}
		}
		chunks = append(chunks, c)
		chunkIDs = append(chunkIDs, c.ID)
	}

	// Re-derive parent/child references now that final IDs are known: the
	// structured chunker links them by slice index during construction
	// (see markdown.go), so translate those placeholder links to real IDs.
	resolveHierarchy(chunks)

	doc := Document{
		ID:          docID,
		Repository:  repository,
		FilePath:    filePath,
		Type:        docType,
		Metadata:    meta,
		Content:     text,
		ChunkIDs:    chunkIDs,
		ModifiedAt:  now,
		ContentHash: contentHash,
	}
	return doc, chunks, nil
}

// detectDocumentType classifies by extension first, falling back to a
// content sniff for ambiguous cases (e.g. extensionless files, or
// distinguishing JSON from plain text).
func detectDocumentType(filePath string, content []byte) DocumentType {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".md", ".markdown", ".mdx":
		return DocumentTypeMarkdown
	case ".rst":
		return DocumentTypeRST
	case ".html", ".htm":
		return DocumentTypeHTML
	case ".yaml", ".yml", ".json", ".xml":
		return DocumentTypeStructured
	case "":
		// no extension: sniff content
	}
	if (&CodeChunker{}).Supports(ext) {
		return DocumentTypeCode
	}

	sniffed := http.DetectContentType(firstN(content, 512))
	switch {
	case strings.Contains(sniffed, "html"):
		return DocumentTypeHTML
	case strings.Contains(sniffed, "xml"):
		return DocumentTypeStructured
	}
	trimmed := strings.TrimSpace(string(content))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return DocumentTypeStructured
	}
	return DocumentTypePlain
}

func firstN(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
