package docstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/gko/internal/outline"
)

const upsertNodeSQL = `
	INSERT INTO nodes (id, parent_id, position, content)
	VALUES (:id, :parent_id, :position, :content)
	ON CONFLICT(id) DO UPDATE SET
		parent_id = excluded.parent_id,
		position  = excluded.position,
		content   = excluded.content
`

// PutNode inserts or replaces a single node record and bumps update_seq.
func (s *Store) PutNode(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("put node: id required")
	}
	return s.writeRecords(ctx, []Record{rec}, 0)
}

// ImportTree writes every node of the tree rooted at root in one transaction.
// Existing nodes with the same ids are replaced.
func (s *Store) ImportTree(ctx context.Context, root *outline.Node) error {
	if root == nil {
		return fmt.Errorf("import tree: root required")
	}
	var records []Record
	_ = outline.Walk(root, func(n, parent *outline.Node, position int) error {
		rec := Record{ID: n.ID, Position: position, Content: n.Content}
		if parent != nil {
			rec.Parent = parent.ID
		}
		records = append(records, rec)
		return nil
	})
	if err := s.writeRecords(ctx, records, 0); err != nil {
		return fmt.Errorf("import tree: %w", err)
	}
	return nil
}

// writeRecords upserts records in a single transaction. update_seq advances
// by one per record and is raised to minSeq when that is larger.
func (s *Store) writeRecords(ctx context.Context, records []Record, minSeq int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write records: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := upsertRecords(ctx, tx, records); err != nil {
		return err
	}

	seq, err := s.updateSeq(ctx, tx)
	if err != nil {
		return err
	}
	seq += int64(len(records))
	if minSeq > seq {
		seq = minSeq
	}
	if err := setUpdateSeq(ctx, tx, seq); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write records: commit: %w", err)
	}
	return nil
}

func upsertRecords(ctx context.Context, tx *sqlx.Tx, records []Record) error {
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("write records: record without id")
		}
		if _, err := tx.NamedExecContext(ctx, upsertNodeSQL, rec); err != nil {
			return fmt.Errorf("write records: upsert %s: %w", rec.ID, err)
		}
	}
	return nil
}
