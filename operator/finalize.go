package operator

import (
	"context"
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// Finalize drives root to completion and returns the relation id of its
// output, which is already registered in storage by the time every
// operator's Open has returned (spec §2 "Plan finalization"; §6 "the
// query builder ... calls finalize() to assign identifiers and register
// the root's output relation").
func Finalize(ctx context.Context, root Operator) (string, error) {
	if err := root.Open(ctx); err != nil {
		return "", fmt.Errorf("finalize: %w", err)
	}
	for {
		_, page, err := root.Next(ctx)
		if err != nil {
			return "", fmt.Errorf("finalize: %w", err)
		}
		if page == nil {
			break
		}
	}
	if err := root.Close(); err != nil {
		return "", fmt.Errorf("finalize: %w", err)
	}
	return root.RelationID(), nil
}

// ReadAll drains a relation already registered in storage into a slice of
// packed tuples, a convenience used by tests and the CLI.
func ReadAll(ctx context.Context, store storage.PageStore, relationID string) ([][]byte, error) {
	cursor, err := store.Pages(ctx, relationID)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var tuples [][]byte
	for {
		more, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		tuples = append(tuples, cursor.Page().Tuples()...)
	}
	return tuples, nil
}
