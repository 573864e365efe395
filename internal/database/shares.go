package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serwer-udostepnien/internal/models"
)

var ErrDuplicateToken = errors.New("share token already in use")
var ErrMissingReference = errors.New("referenced node or account does not exist")

const shareColumns = `id, share_type, share_with, uid_owner, uid_initiator, parent, node_id, node_type, permissions, password_hash, password_by_talk, token, expiration, label, file_target, attributes, stime`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShare(row rowScanner) (*models.Share, error) {
	var s models.Share
	var shareType, perms int
	var attrs []byte

	err := row.Scan(
		&s.ID,
		&shareType,
		&s.SharedWith,
		&s.ShareOwner,
		&s.SharedBy,
		&s.ParentID,
		&s.NodeID,
		&s.NodeType,
		&perms,
		&s.Password,
		&s.SendPasswordByTalk,
		&s.Token,
		&s.ExpirationDate,
		&s.Label,
		&s.Target,
		&attrs,
		&s.ShareTime,
	)
	if err != nil {
		return nil, err
	}

	s.ShareType = models.ShareType(shareType)
	s.Permissions = models.Permissions(perms)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &s.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal share attributes: %w", err)
		}
	}
	return &s, nil
}

func collectShares(rows pgx.Rows) ([]*models.Share, error) {
	defer rows.Close()

	var shares []*models.Share
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if shares == nil {
		return []*models.Share{}, nil
	}

	return shares, nil
}

func marshalAttributes(s *models.Share) (interface{}, error) {
	if len(s.Attributes) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(s.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal share attributes: %w", err)
	}
	return b, nil
}

func typeInts(types ...models.ShareType) []int32 {
	out := make([]int32, len(types))
	for i, t := range types {
		out[i] = int32(t)
	}
	return out
}

func (q *Queries) InsertShare(ctx context.Context, s *models.Share) (*models.Share, error) {
	attrs, err := marshalAttributes(s)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO shares (share_type, share_with, uid_owner, uid_initiator, parent, node_id, node_type,
			permissions, password_hash, password_by_talk, token, expiration, label, file_target, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + shareColumns
	row := q.db.QueryRow(ctx, query,
		int32(s.ShareType), s.SharedWith, s.ShareOwner, s.SharedBy, s.ParentID, s.NodeID, s.NodeType,
		int32(s.Permissions), s.Password, s.SendPasswordByTalk, s.Token, s.ExpirationDate, s.Label, s.Target, attrs,
	)

	created, err := scanShare(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateToken
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrMissingReference
		}
		return nil, err
	}

	return created, nil
}

func (q *Queries) UpdateShare(ctx context.Context, s *models.Share) (*models.Share, error) {
	attrs, err := marshalAttributes(s)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE shares
		SET share_with = $2, uid_owner = $3, uid_initiator = $4, parent = $5, permissions = $6,
			password_hash = $7, password_by_talk = $8, expiration = $9, label = $10,
			file_target = $11, attributes = $12
		WHERE id = $1
		RETURNING ` + shareColumns
	row := q.db.QueryRow(ctx, query,
		s.ID, s.SharedWith, s.ShareOwner, s.SharedBy, s.ParentID, int32(s.Permissions),
		s.Password, s.SendPasswordByTalk, s.ExpirationDate, s.Label, s.Target, attrs,
	)

	updated, err := scanShare(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return updated, nil
}

// SyncGroupOverrides copies ownership and expiration of a group share to its
// override children. Permissions are copied only where the override has not
// been zeroed by a self-removal.
func (q *Queries) SyncGroupOverrides(ctx context.Context, groupShare *models.Share) error {
	query := `
		UPDATE shares
		SET uid_owner = $2, uid_initiator = $3, expiration = $4
		WHERE parent = $1 AND share_type = $5
	`
	_, err := q.db.Exec(ctx, query, groupShare.ID, groupShare.ShareOwner, groupShare.SharedBy,
		groupShare.ExpirationDate, int32(models.ShareTypeGroupOverride))
	if err != nil {
		return err
	}

	query = `
		UPDATE shares
		SET permissions = $2
		WHERE parent = $1 AND share_type = $3 AND permissions != 0
	`
	_, err = q.db.Exec(ctx, query, groupShare.ID, int32(groupShare.Permissions), int32(models.ShareTypeGroupOverride))
	return err
}

func (q *Queries) GetShareByID(ctx context.Context, id int64, types []int32) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE id = $1 AND share_type = ANY($2)`
	row := q.db.QueryRow(ctx, query, id, types)

	s, err := scanShare(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (q *Queries) GetShareByToken(ctx context.Context, token string, types []int32) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE token = $1 AND token != '' AND share_type = ANY($2)`
	row := q.db.QueryRow(ctx, query, token, types)

	s, err := scanShare(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (q *Queries) GetShareChildren(ctx context.Context, parentID int64, types []int32) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE parent = $1 AND share_type = ANY($2) ORDER BY id ASC`
	rows, err := q.db.Query(ctx, query, parentID, types)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

func (q *Queries) DeleteShareByID(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM shares WHERE id = $1`, id)
	return err
}

// DeleteShareWithOverrides removes a share row and, for group shares, its
// override children in the same statement.
func (q *Queries) DeleteShareWithOverrides(ctx context.Context, id int64) error {
	query := `DELETE FROM shares WHERE id = $1 OR (parent = $1 AND share_type = $2)`
	_, err := q.db.Exec(ctx, query, id, int32(models.ShareTypeGroupOverride))
	return err
}

func (q *Queries) ListSharesBy(ctx context.Context, uid string, types []int32, nodeID string, reshares bool, limit, offset int) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE share_type = ANY($1)`
	args := []interface{}{types}

	if reshares {
		query += ` AND (uid_owner = $2 OR uid_initiator = $2)`
	} else {
		query += ` AND uid_initiator = $2`
	}
	args = append(args, uid)

	n := 3
	if nodeID != "" {
		query += fmt.Sprintf(" AND node_id = $%d", n)
		args = append(args, nodeID)
		n++
	}

	query += " ORDER BY id ASC"
	if limit >= 0 {
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, limit)
		n++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, offset)
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

func (q *Queries) ListSharesWithRecipient(ctx context.Context, recipient string, types []int32, nodeID string, limit, offset int) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE share_type = ANY($1) AND share_with = $2`
	args := []interface{}{types, recipient}

	n := 3
	if nodeID != "" {
		query += fmt.Sprintf(" AND node_id = $%d", n)
		args = append(args, nodeID)
		n++
	}

	query += " ORDER BY id ASC"
	if limit >= 0 {
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, limit)
		n++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, offset)
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

// ListGroupSharesForGroups lists canonical group shares targeting any of the
// given groups. Pagination is applied here, after the caller has enumerated
// the recipient's full group list.
func (q *Queries) ListGroupSharesForGroups(ctx context.Context, groups []string, nodeID string, limit, offset int) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE share_type = $1 AND share_with = ANY($2)`
	args := []interface{}{int32(models.ShareTypeGroup), groups}

	n := 3
	if nodeID != "" {
		query += fmt.Sprintf(" AND node_id = $%d", n)
		args = append(args, nodeID)
		n++
	}

	query += " ORDER BY id ASC"
	if limit >= 0 {
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, limit)
		n++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, offset)
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

// ListOverridesForShares returns uid's override rows below any of the given
// group share ids.
func (q *Queries) ListOverridesForShares(ctx context.Context, parentIDs []int64, uid string) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE share_type = $1 AND share_with = $2 AND parent = ANY($3)`
	rows, err := q.db.Query(ctx, query, int32(models.ShareTypeGroupOverride), uid, parentIDs)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

func (q *Queries) GetGroupOverride(ctx context.Context, parentID int64, uid string) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE parent = $1 AND share_type = $2 AND share_with = $3`
	row := q.db.QueryRow(ctx, query, parentID, int32(models.ShareTypeGroupOverride), uid)

	s, err := scanShare(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (q *Queries) UpdateOverridePermissions(ctx context.Context, parentID int64, uid string, permissions models.Permissions) error {
	query := `UPDATE shares SET permissions = $3 WHERE parent = $1 AND share_type = $2 AND share_with = $4`
	_, err := q.db.Exec(ctx, query, parentID, int32(models.ShareTypeGroupOverride), int32(permissions), uid)
	return err
}

func (q *Queries) UpdateOverrideTarget(ctx context.Context, parentID int64, uid, target string) (bool, error) {
	query := `UPDATE shares SET file_target = $3 WHERE parent = $1 AND share_type = $2 AND share_with = $4`
	res, err := q.db.Exec(ctx, query, parentID, int32(models.ShareTypeGroupOverride), target, uid)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) UpdateShareTarget(ctx context.Context, id int64, target string) error {
	_, err := q.db.Exec(ctx, `UPDATE shares SET file_target = $2 WHERE id = $1`, id, target)
	return err
}

func (q *Queries) ListSharesByNode(ctx context.Context, nodeID string, types []int32) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE node_id = $1 AND share_type = ANY($2) ORDER BY id ASC`
	rows, err := q.db.Query(ctx, query, nodeID, types)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

func (q *Queries) ListSharesByNodes(ctx context.Context, nodeIDs []string, types []int32) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE node_id = ANY($1) AND share_type = ANY($2) ORDER BY id ASC`
	rows, err := q.db.Query(ctx, query, nodeIDs, types)
	if err != nil {
		return nil, err
	}
	return collectShares(rows)
}

func (q *Queries) DeleteUserSharesOfAccount(ctx context.Context, uid string) error {
	query := `DELETE FROM shares WHERE share_type = $1 AND (uid_owner = $2 OR share_with = $2)`
	_, err := q.db.Exec(ctx, query, int32(models.ShareTypeUser), uid)
	return err
}

func (q *Queries) DeleteGroupSharesOfAccount(ctx context.Context, uid string) error {
	query := `
		DELETE FROM shares
		WHERE (share_type = ANY($1) AND uid_owner = $2)
		   OR (share_type = $3 AND share_with = $2)
	`
	_, err := q.db.Exec(ctx, query,
		typeInts(models.ShareTypeGroup, models.ShareTypeGroupOverride), uid,
		int32(models.ShareTypeGroupOverride))
	return err
}

// DeleteTokenSharesOfAccount removes token-backed shares when either side of
// the grant loses its account.
func (q *Queries) DeleteTokenSharesOfAccount(ctx context.Context, uid string, types []int32) error {
	query := `DELETE FROM shares WHERE share_type = ANY($1) AND (uid_owner = $2 OR uid_initiator = $2)`
	_, err := q.db.Exec(ctx, query, types, uid)
	return err
}

func (q *Queries) DeleteSharesOwnedBy(ctx context.Context, uid string, types []int32) error {
	query := `DELETE FROM shares WHERE share_type = ANY($1) AND uid_owner = $2`
	_, err := q.db.Exec(ctx, query, types, uid)
	return err
}

func (q *Queries) GroupShareIDs(ctx context.Context, gid string, t models.ShareType) ([]int64, error) {
	rows, err := q.db.Query(ctx, `SELECT id FROM shares WHERE share_type = $1 AND share_with = $2 ORDER BY id ASC`, int32(t), gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if ids == nil {
		return []int64{}, nil
	}

	return ids, nil
}

func (q *Queries) DeleteOverridesByParents(ctx context.Context, parentIDs []int64) error {
	query := `DELETE FROM shares WHERE share_type = $1 AND parent = ANY($2)`
	_, err := q.db.Exec(ctx, query, int32(models.ShareTypeGroupOverride), parentIDs)
	return err
}

func (q *Queries) DeleteOverridesOfUserByParents(ctx context.Context, uid string, parentIDs []int64) error {
	query := `DELETE FROM shares WHERE share_type = $1 AND share_with = $2 AND parent = ANY($3)`
	_, err := q.db.Exec(ctx, query, int32(models.ShareTypeGroupOverride), uid, parentIDs)
	return err
}

func (q *Queries) DeleteSharesByIDs(ctx context.Context, ids []int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM shares WHERE id = ANY($1)`, ids)
	return err
}
