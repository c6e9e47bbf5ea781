package docstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/gko/internal/outline"
)

// Record is the stored and dumped form of one node.
type Record struct {
	ID       string `json:"_id" db:"id"`
	Parent   string `json:"parent,omitempty" db:"parent_id"`
	Position int    `json:"position" db:"position"`
	Content  string `json:"content" db:"content"`
}

// Info summarises the store for the dump header.
type Info struct {
	DBName    string `json:"db_name"`
	DocCount  int64  `json:"doc_count"`
	UpdateSeq int64  `json:"update_seq"`
}

// Nodes returns all node records ordered by id (binary collation).
// Returns an empty slice (not nil) for an empty store.
func (s *Store) Nodes(ctx context.Context) ([]Record, error) {
	records := []Record{}
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, parent_id, position, content
		FROM nodes
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	return records, nil
}

// Info returns the store name, node count and update sequence.
func (s *Store) Info(ctx context.Context) (Info, error) {
	return s.info(ctx, s.db)
}

func (s *Store) info(ctx context.Context, q queryer) (Info, error) {
	name, err := s.metaValue(ctx, q, metaDBName)
	if err != nil {
		return Info{}, err
	}
	seq, err := s.updateSeq(ctx, q)
	if err != nil {
		return Info{}, err
	}
	var count int64
	if err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM nodes`); err != nil {
		return Info{}, fmt.Errorf("count nodes: %w", err)
	}
	return Info{DBName: name, DocCount: count, UpdateSeq: seq}, nil
}

// Tree rebuilds the outline from the stored records. Siblings are ordered by
// position, then id. Records whose parent is missing are dropped. An empty
// store yields a bare root.
func (s *Store) Tree(ctx context.Context) (*outline.Node, error) {
	records, err := s.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	return buildTree(records), nil
}

func buildTree(records []Record) *outline.Node {
	nodes := make(map[string]*outline.Node, len(records))
	for _, rec := range records {
		nodes[rec.ID] = &outline.Node{ID: rec.ID, Content: rec.Content}
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].ID < sorted[j].ID
	})
	for _, rec := range sorted {
		if rec.ID == outline.RootID {
			continue
		}
		parent, ok := nodes[rec.Parent]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, nodes[rec.ID])
	}

	root, ok := nodes[outline.RootID]
	if !ok {
		root = &outline.Node{ID: outline.RootID}
	}
	return root
}
