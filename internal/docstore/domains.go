package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const pathSeparator = "/"

// PutDomainNode stores the fields of the document at path. Paths alternate
// document and sub-collection names: "math", "math/topics/algebra".
func (s *Store) PutDomainNode(ctx context.Context, path string, data map[string]any) error {
	segments, err := splitDomainPath(path)
	if err != nil {
		return err
	}

	if data == nil {
		data = map[string]any{}
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode domain node %q: %w", path, err)
	}

	err = s.execWithoutResultRetry(ctx, `
		INSERT INTO domain_nodes (path, data) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data`,
		strings.Join(segments, pathSeparator), string(payload))
	if err != nil {
		return fmt.Errorf("store domain node %q: %w", path, err)
	}

	return nil
}

// DomainTree returns every domain document keyed by ID, with each
// sub-collection nested under its name inside the parent document.
func (s *Store) DomainTree(ctx context.Context) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, data FROM domain_nodes`)
	if err != nil {
		return nil, fmt.Errorf("list domain nodes: %w", err)
	}
	defer rows.Close()

	nodes := map[string]map[string]any{}
	for rows.Next() {
		var path, payload string
		if err := rows.Scan(&path, &payload); err != nil {
			return nil, fmt.Errorf("scan domain node: %w", err)
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return nil, fmt.Errorf("decode domain node %q: %w", path, err)
		}
		nodes[path] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list domain nodes: %w", err)
	}

	return buildTree(nodes), nil
}

func buildTree(nodes map[string]map[string]any) map[string]any {
	paths := make([]string, 0, len(nodes))
	for path := range nodes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	root := map[string]any{}
	for _, path := range paths {
		segments := strings.Split(path, pathSeparator)
		collection := root
		for i := 0; i < len(segments); i += 2 {
			doc := childMap(collection, segments[i])
			if i == len(segments)-1 {
				for key, value := range nodes[path] {
					doc[key] = value
				}
				break
			}
			collection = childMap(doc, segments[i+1])
		}
	}

	return root
}

func childMap(parent map[string]any, key string) map[string]any {
	if existing, ok := parent[key].(map[string]any); ok {
		return existing
	}
	child := map[string]any{}
	parent[key] = child
	return child
}

func splitDomainPath(path string) ([]string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), pathSeparator)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	segments := strings.Split(trimmed, pathSeparator)
	if len(segments)%2 == 0 {
		return nil, fmt.Errorf("%w: %q names a collection, not a document", ErrInvalidPath, path)
	}
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}

	return segments, nil
}
