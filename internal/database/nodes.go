package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serwer-udostepnien/internal/models"
)

var ErrDuplicateNodeName = errors.New("a node with the same name already exists in this folder")

type CreateNodeParams struct {
	ID        string
	OwnerID   string
	ParentID  *string
	Name      string
	NodeType  string
	Mount     string
	SizeBytes *int64
	MimeType  *string
}

func (q *Queries) CreateNode(ctx context.Context, arg CreateNodeParams) (*models.Node, error) {
	if arg.ID == "" {
		arg.ID = uuid.NewString()
	}
	if arg.Mount == "" {
		arg.Mount = models.MountLocal
	}

	query := `
		INSERT INTO nodes (id, owner_id, parent_id, name, node_type, mount, size_bytes, mime_type, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, owner_id, parent_id, name, node_type, mount, size_bytes, mime_type, created_at, modified_at, deleted_at
	`
	now := time.Now()

	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.ParentID,
		arg.Name,
		arg.NodeType,
		arg.Mount,
		arg.SizeBytes,
		arg.MimeType,
		now,
		now,
	)

	node, err := scanNode(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNodeName
		}
		return nil, err
	}

	return node, nil
}

func scanNode(row rowScanner) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.OwnerID,
		&node.ParentID,
		&node.Name,
		&node.NodeType,
		&node.Mount,
		&node.SizeBytes,
		&node.MimeType,
		&node.CreatedAt,
		&node.ModifiedAt,
		&node.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (q *Queries) GetNode(ctx context.Context, id string) (*models.Node, error) {
	query := `
		SELECT id, owner_id, parent_id, name, node_type, mount, size_bytes, mime_type, created_at, modified_at, deleted_at
		FROM nodes
		WHERE id = $1 AND deleted_at IS NULL
	`
	node, err := scanNode(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return node, nil
}

// NodeAncestorIDs returns the node id followed by its ancestor chain up to
// the tree root.
func (q *Queries) NodeAncestorIDs(ctx context.Context, id string) ([]string, error) {
	query := `
		WITH RECURSIVE node_parents AS (
			SELECT id, parent_id, 0 AS depth
			FROM nodes
			WHERE id = $1 AND deleted_at IS NULL

			UNION ALL

			SELECT n.id, n.parent_id, np.depth + 1
			FROM nodes n
			JOIN node_parents np ON n.id = np.parent_id
		)
		SELECT id FROM node_parents ORDER BY depth ASC
	`
	rows, err := q.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var nodeID string
		if err := rows.Scan(&nodeID); err != nil {
			return nil, err
		}
		ids = append(ids, nodeID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if ids == nil {
		return []string{}, nil
	}

	return ids, nil
}

// NodePath renders the node's slash-separated path from the tree root.
func (q *Queries) NodePath(ctx context.Context, id string) (string, error) {
	query := `
		WITH RECURSIVE node_parents AS (
			SELECT id, parent_id, name, 0 AS depth
			FROM nodes
			WHERE id = $1 AND deleted_at IS NULL

			UNION ALL

			SELECT n.id, n.parent_id, n.name, np.depth + 1
			FROM nodes n
			JOIN node_parents np ON n.id = np.parent_id
		)
		SELECT name FROM node_parents ORDER BY depth DESC
	`
	rows, err := q.db.Query(ctx, query, id)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return "", err
	}

	return "/" + strings.Join(names, "/"), nil
}
