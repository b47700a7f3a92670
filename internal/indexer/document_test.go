package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDocumentProcessor_MarkdownIngestion(t *testing.T) {
	// S1 — Markdown ingestion scenario from the testable-properties section:
	// three leaf chunks, shared title metadata, deterministic IDs.
	content := []byte("---\ntitle: Getting Started\n---\n# Getting Started\n## Install\nRun `npm install`.\n## Usage\nCall `init()`.\n")

	p := NewDefaultDocumentProcessor(2000, 200)
	doc1, chunks1, err := p.Process(context.Background(), "README.md", content, "demo")
	require.NoError(t, err)

	doc2, chunks2, err := p.Process(context.Background(), "README.md", content, "demo")
	require.NoError(t, err)

	assert.Equal(t, doc1.ID, doc2.ID, "document IDs must be stable across runs")
	require.Len(t, chunks1, len(chunks2))
	for i := range chunks1 {
		assert.Equal(t, chunks1[i].ID, chunks2[i].ID, "chunk IDs must be stable across runs")
	}

	var sections []string
	for _, c := range chunks1 {
		if !c.IsSummary {
			sections = append(sections, c.Section)
		}
		assert.Equal(t, "Getting Started", c.Metadata["title"])
	}
	assert.ElementsMatch(t, []string{"Getting Started", "Install", "Usage"}, sections)
}

func TestDefaultDocumentProcessor_FrontMatterBlocklist(t *testing.T) {
	content := []byte("---\ntitle: Secrets\npassword: hunter2\napiKey: sk-aaaaaaaaaaaaaaaaaaaa\n---\n# Secrets\nBody text.\n")
	p := NewDefaultDocumentProcessor(2000, 200)
	doc, _, err := p.Process(context.Background(), "secrets.md", content, "demo")
	require.NoError(t, err)

	_, hasPassword := doc.Metadata["password"]
	assert.False(t, hasPassword)
	_, hasAPIKey := doc.Metadata["apiKey"]
	assert.False(t, hasAPIKey)
	assert.Equal(t, "Secrets", doc.Metadata["title"])
}

func TestDefaultDocumentProcessor_HierarchicalSummaryChunks(t *testing.T) {
	content := []byte("# Top\nIntro paragraph.\n## Child A\nBody A.\n## Child B\nBody B.\n")
	p := NewDefaultDocumentProcessor(2000, 200)
	_, chunks, err := p.Process(context.Background(), "doc.md", content, "demo")
	require.NoError(t, err)

	var summary *Chunk
	for i := range chunks {
		if chunks[i].IsSummary {
			summary = &chunks[i]
		}
	}
	require.NotNil(t, summary, "expected a summary chunk for the top heading")
	assert.Len(t, summary.ChildChunkIDs, 2)
	for _, c := range chunks {
		if !c.IsSummary {
			assert.Equal(t, summary.ID, c.ParentChunkID)
		}
	}
}

func TestDetectDocumentType(t *testing.T) {
	cases := []struct {
		path string
		want DocumentType
	}{
		{"README.md", DocumentTypeMarkdown},
		{"index.rst", DocumentTypeRST},
		{"page.html", DocumentTypeHTML},
		{"config.yaml", DocumentTypeStructured},
		{"main.go", DocumentTypeCode},
		{"notes.txt", DocumentTypePlain},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got := detectDocumentType(tc.path, []byte("content"))
			assert.Equal(t, tc.want, got)
		})
	}
}
