package share

import (
	"context"

	"serwer-udostepnien/internal/models"
)

// UserResolver is the identity backend consumed by the manager.
type UserResolver interface {
	UserExists(ctx context.Context, uid string) (bool, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// GroupResolver answers group existence and membership questions.
type GroupResolver interface {
	GroupExists(ctx context.Context, gid string) (bool, error)
	InGroup(ctx context.Context, uid, gid string) (bool, error)
	// UserGroups enumerates every group the user belongs to. The
	// enumeration is not paginated; see the design notes.
	UserGroups(ctx context.Context, uid string) ([]string, error)
	GroupMembers(ctx context.Context, gid string) ([]string, error)
}

// NodeResolver is the window into the filesystem tree.
type NodeResolver interface {
	// GetNode returns nil when the node does not exist or is trashed.
	GetNode(ctx context.Context, nodeID string) (*models.Node, error)
	// AncestorIDs returns the node id followed by its ancestor chain up to
	// and including the tree root.
	AncestorIDs(ctx context.Context, nodeID string) ([]string, error)
	// Path renders the node's slash-separated path from the tree root.
	Path(ctx context.Context, nodeID string) (string, error)
	// EffectivePermissions is the ceiling a user holds on a node: All for
	// the owner, otherwise the union of share permissions granted on the
	// node or any of its ancestors, directly or through a group.
	EffectivePermissions(ctx context.Context, nodeID, uid string) (models.Permissions, error)
	// AccessSource returns the id of a share through which uid received
	// access to the node, or nil when the access is first-hand.
	AccessSource(ctx context.Context, nodeID, uid string) (*int64, error)
}

// Hasher hashes and verifies share passwords. Verify reports a non-empty
// newHash when the stored hash used a legacy cost and should be replaced.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (ok bool, newHash string, err error)
}

// Mailer delivers email-share notifications. Delivery mechanics are out of
// scope here.
type Mailer interface {
	SendShareNotification(ctx context.Context, share *models.Share, plainPassword string) error
}
