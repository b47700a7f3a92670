package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

// SearchByMetadata performs a payload-only scan (no vector) against the
// FTS5/metadata-bearing table, applying each filter predicate as a GLOB
// match when the value contains glob metacharacters, or equality otherwise.
// This backs the VectorIndex contract's searchByMetadata operation and the
// pattern-matching fallback alongside the FTS5 BM25 path.
func (s *Store) SearchByMetadata(ctx context.Context, filter map[string]interface{}, limit int) ([]vectorstore.Document, error) {
	where, args := buildMetadataWhere(filter)
	query := "SELECT id, content, vector, metadata, created_at, updated_at FROM documents"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY updated_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search by metadata: %w", err)
	}
	defer rows.Close()

	var docs []vectorstore.Document
	for rows.Next() {
		var doc vectorstore.Document
		var vectorJSON, metadataJSON []byte
		var createdAt, updatedAt int64
		if err := rows.Scan(&doc.ID, &doc.Content, &vectorJSON, &metadataJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := deserializeDocument(&doc, vectorJSON, metadataJSON, createdAt, updatedAt); err != nil {
			return nil, fmt.Errorf("deserialize document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return docs, nil
}

// DeleteByDocument bulk-removes every chunk whose metadata.document_id
// equals documentID.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE json_extract(metadata, '$.document_id') = ?`,
		documentID,
	)
	if err != nil {
		return fmt.Errorf("delete by document: %w", err)
	}
	return nil
}

// DeleteByRepository bulk-removes every chunk whose metadata.repository
// equals name, satisfying the deletion-cascade invariant.
func (s *Store) DeleteByRepository(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE json_extract(metadata, '$.repository') = ?`,
		name,
	)
	if err != nil {
		return fmt.Errorf("delete by repository: %w", err)
	}
	return nil
}

// buildMetadataWhere renders a filter map as a conjunction of SQL
// predicates over json_extract(metadata, '$.<key>'), using GLOB for values
// containing glob metacharacters, IN (...) for a []string "$in"/OR
// predicate (e.g. contextgen's multi-repository/category filter), and
// equality otherwise.
func buildMetadataWhere(filter map[string]interface{}) (string, []interface{}) {
	if len(filter) == 0 {
		return "", nil
	}
	var clauses []string
	var args []interface{}
	for key, value := range filter {
		column := fmt.Sprintf("json_extract(metadata, '$.%s')", key)
		if values, isList := value.([]string); isList {
			if len(values) == 0 {
				clauses = append(clauses, "0")
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				placeholders[i] = "?"
				args = append(args, v)
			}
			clauses = append(clauses, column+" IN ("+strings.Join(placeholders, ",")+")")
			continue
		}
		str, isString := value.(string)
		if isString && isGlobLike(str) {
			clauses = append(clauses, column+" GLOB ?")
			args = append(args, str)
		} else {
			clauses = append(clauses, column+" = ?")
			args = append(args, value)
		}
	}
	return strings.Join(clauses, " AND "), args
}

func isGlobLike(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
