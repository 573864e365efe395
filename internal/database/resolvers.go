package database

import (
	"context"

	"serwer-udostepnien/internal/models"
)

// UserDirectory adapts the users relation to the manager's resolver
// contract.
type UserDirectory struct {
	store *Store
}

func NewUserDirectory(store *Store) *UserDirectory {
	return &UserDirectory{store: store}
}

func (d *UserDirectory) UserExists(ctx context.Context, uid string) (bool, error) {
	return d.store.Queries.UserExists(ctx, uid)
}

func (d *UserDirectory) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return d.store.Queries.GetUser(ctx, uid)
}

// GroupDirectory adapts the groups and group_members relations.
type GroupDirectory struct {
	store *Store
}

func NewGroupDirectory(store *Store) *GroupDirectory {
	return &GroupDirectory{store: store}
}

func (d *GroupDirectory) GroupExists(ctx context.Context, gid string) (bool, error) {
	return d.store.Queries.GroupExists(ctx, gid)
}

func (d *GroupDirectory) InGroup(ctx context.Context, uid, gid string) (bool, error) {
	return d.store.Queries.InGroup(ctx, uid, gid)
}

func (d *GroupDirectory) UserGroups(ctx context.Context, uid string) ([]string, error) {
	return d.store.Queries.UserGroups(ctx, uid)
}

func (d *GroupDirectory) GroupMembers(ctx context.Context, gid string) ([]string, error) {
	return d.store.Queries.GroupMembers(ctx, gid)
}

// NodeTree answers filesystem questions for the manager, including the
// share-derived permission ceiling a user holds on a node.
type NodeTree struct {
	store *Store
}

func NewNodeTree(store *Store) *NodeTree {
	return &NodeTree{store: store}
}

func (t *NodeTree) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	return t.store.Queries.GetNode(ctx, nodeID)
}

func (t *NodeTree) AncestorIDs(ctx context.Context, nodeID string) ([]string, error) {
	return t.store.Queries.NodeAncestorIDs(ctx, nodeID)
}

func (t *NodeTree) Path(ctx context.Context, nodeID string) (string, error) {
	return t.store.Queries.NodePath(ctx, nodeID)
}

// EffectivePermissions is All for the owner, otherwise the union of share
// permissions granted on the node or any ancestor, directly or through a
// group. A group-expansion override replaces its group share's contribution.
func (t *NodeTree) EffectivePermissions(ctx context.Context, nodeID, uid string) (models.Permissions, error) {
	node, err := t.store.Queries.GetNode(ctx, nodeID)
	if err != nil {
		return 0, err
	}
	if node == nil {
		return 0, nil
	}
	if node.OwnerID == uid {
		return models.PermissionAll, nil
	}

	rows, userGroups, err := t.grantsOnChain(ctx, nodeID, uid)
	if err != nil {
		return 0, err
	}

	overrides := make(map[int64]models.Permissions)
	for _, s := range rows {
		if s.ShareType == models.ShareTypeGroupOverride && s.SharedWith == uid && s.ParentID != nil {
			overrides[*s.ParentID] = s.Permissions
		}
	}

	var perms models.Permissions
	for _, s := range rows {
		switch s.ShareType {
		case models.ShareTypeUser:
			if s.SharedWith == uid {
				perms |= s.Permissions
			}
		case models.ShareTypeGroup:
			if !containsString(userGroups, s.SharedWith) {
				continue
			}
			if p, ok := overrides[s.ID]; ok {
				perms |= p
			} else {
				perms |= s.Permissions
			}
		}
	}

	return perms, nil
}

// AccessSource returns the id of a share granting uid access to the node,
// preferring grants closest to the node, or nil for first-hand access.
func (t *NodeTree) AccessSource(ctx context.Context, nodeID, uid string) (*int64, error) {
	node, err := t.store.Queries.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil || node.OwnerID == uid {
		return nil, nil
	}

	rows, userGroups, err := t.grantsOnChain(ctx, nodeID, uid)
	if err != nil {
		return nil, err
	}

	overrides := make(map[int64]models.Permissions)
	byNode := make(map[string][]*models.Share)
	for _, s := range rows {
		if s.ShareType == models.ShareTypeGroupOverride && s.SharedWith == uid && s.ParentID != nil {
			overrides[*s.ParentID] = s.Permissions
			continue
		}
		byNode[s.NodeID] = append(byNode[s.NodeID], s)
	}

	ancestors, err := t.store.Queries.NodeAncestorIDs(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	for _, ancestor := range ancestors {
		for _, s := range byNode[ancestor] {
			switch s.ShareType {
			case models.ShareTypeUser:
				if s.SharedWith == uid {
					id := s.ID
					return &id, nil
				}
			case models.ShareTypeGroup:
				if !containsString(userGroups, s.SharedWith) {
					continue
				}
				if p, ok := overrides[s.ID]; ok && p == 0 {
					continue
				}
				id := s.ID
				return &id, nil
			}
		}
	}

	return nil, nil
}

func (t *NodeTree) grantsOnChain(ctx context.Context, nodeID, uid string) ([]*models.Share, []string, error) {
	ancestors, err := t.store.Queries.NodeAncestorIDs(ctx, nodeID)
	if err != nil {
		return nil, nil, err
	}
	if len(ancestors) == 0 {
		return nil, nil, nil
	}

	rows, err := t.store.Queries.ListSharesByNodes(ctx, ancestors,
		typeInts(models.ShareTypeUser, models.ShareTypeGroup, models.ShareTypeGroupOverride))
	if err != nil {
		return nil, nil, err
	}

	userGroups, err := t.store.Queries.UserGroups(ctx, uid)
	if err != nil {
		return nil, nil, err
	}

	return rows, userGroups, nil
}

func containsString(list []string, x string) bool {
	for _, v := range list {
		if v == x {
			return true
		}
	}
	return false
}
