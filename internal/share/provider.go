package share

import (
	"context"

	"serwer-udostepnien/internal/models"
)

// NodeAccess is a recipient's effective entry point to a node.
type NodeAccess struct {
	NodeID string `json:"node_id"`
	Path   string `json:"node_path"`
}

// AccessList aggregates every identity able to reach a node through shares.
type AccessList struct {
	// Users is filled when current access was not requested.
	Users []string `json:"users,omitempty"`
	// UserAccess maps uid to the effective entry node when current access
	// was requested, with overrides and group membership resolved.
	UserAccess map[string]NodeAccess `json:"user_access,omitempty"`
	Public     bool                  `json:"public"`
	Remote     bool                  `json:"remote"`
}

// Provider is a pluggable backend persisting one or more share types.
type Provider interface {
	Identifier() string
	SupportsType(t models.ShareType) bool

	Create(ctx context.Context, s *models.Share) (*models.Share, error)
	// Update persists changed fields. plainPassword carries the plaintext
	// for providers that need it besides the stored hash (mail shares);
	// it is empty otherwise.
	Update(ctx context.Context, s *models.Share, plainPassword string) (*models.Share, error)
	Delete(ctx context.Context, s *models.Share) error

	GetByID(ctx context.Context, id int64, recipient string) (*models.Share, error)
	GetByToken(ctx context.Context, token string) (*models.Share, error)
	GetChildren(ctx context.Context, s *models.Share) ([]*models.Share, error)
	GetSharesBy(ctx context.Context, uid string, t models.ShareType, nodeID string, reshares bool, limit, offset int) ([]*models.Share, error)
	GetSharedWith(ctx context.Context, uid string, t models.ShareType, nodeID string, limit, offset int) ([]*models.Share, error)
	GetSharesByNode(ctx context.Context, nodeID string) ([]*models.Share, error)
	GetAccessList(ctx context.Context, nodeIDs []string, currentAccess bool) (*AccessList, error)

	Move(ctx context.Context, s *models.Share, recipient string) (*models.Share, error)
	DeleteFromSelf(ctx context.Context, s *models.Share, recipient string) error
	Restore(ctx context.Context, s *models.Share, recipient string) (*models.Share, error)

	UserDeleted(ctx context.Context, uid string, t models.ShareType) error
	GroupDeleted(ctx context.Context, gid string) error
	UserRemovedFromGroup(ctx context.Context, uid, gid string) error
}
