package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serwer-udostepnien/internal/models"
)

var ErrUserAlreadyExists = errors.New("a user with this uid already exists")
var ErrGroupAlreadyExists = errors.New("a group with this gid already exists")

func (q *Queries) CreateUser(ctx context.Context, uid string, passwordHash, displayName *string) (*models.User, error) {
	query := `
		INSERT INTO users (uid, password_hash, display_name)
		VALUES ($1, $2, $3)
		RETURNING uid, COALESCE(password_hash, ''), display_name, enabled, created_at
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, uid, passwordHash, displayName).Scan(
		&user.UID,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Enabled,
		&user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUser(ctx context.Context, uid string) (*models.User, error) {
	query := `
		SELECT uid, COALESCE(password_hash, ''), display_name, enabled, created_at
		FROM users
		WHERE uid = $1
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, uid).Scan(
		&user.UID,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Enabled,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) UserExists(ctx context.Context, uid string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE uid = $1 AND enabled)`, uid).Scan(&exists)
	return exists, err
}

func (q *Queries) DeleteUser(ctx context.Context, uid string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	return err
}

func (q *Queries) CreateGroup(ctx context.Context, gid string, displayName *string) (*models.Group, error) {
	query := `
		INSERT INTO groups (gid, display_name)
		VALUES ($1, $2)
		RETURNING gid, display_name
	`
	var group models.Group
	err := q.db.QueryRow(ctx, query, gid, displayName).Scan(&group.GID, &group.DisplayName)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrGroupAlreadyExists
		}
		return nil, err
	}

	return &group, nil
}

func (q *Queries) GroupExists(ctx context.Context, gid string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE gid = $1)`, gid).Scan(&exists)
	return exists, err
}

func (q *Queries) DeleteGroup(ctx context.Context, gid string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM groups WHERE gid = $1`, gid)
	return err
}

func (q *Queries) AddGroupMember(ctx context.Context, gid, uid string) error {
	query := `INSERT INTO group_members (gid, uid) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := q.db.Exec(ctx, query, gid, uid)
	return err
}

func (q *Queries) RemoveGroupMember(ctx context.Context, gid, uid string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM group_members WHERE gid = $1 AND uid = $2`, gid, uid)
	return err
}

func (q *Queries) InGroup(ctx context.Context, uid, gid string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM group_members WHERE gid = $1 AND uid = $2)`, gid, uid).Scan(&exists)
	return exists, err
}

func (q *Queries) UserGroups(ctx context.Context, uid string) ([]string, error) {
	rows, err := q.db.Query(ctx, `SELECT gid FROM group_members WHERE uid = $1 ORDER BY gid`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gids []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, err
		}
		gids = append(gids, gid)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if gids == nil {
		return []string{}, nil
	}

	return gids, nil
}

func (q *Queries) GroupMembers(ctx context.Context, gid string) ([]string, error) {
	rows, err := q.db.Query(ctx, `SELECT uid FROM group_members WHERE gid = $1 ORDER BY uid`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if uids == nil {
		return []string{}, nil
	}

	return uids, nil
}
