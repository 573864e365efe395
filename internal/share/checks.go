package share

import (
	"context"

	"serwer-udostepnien/internal/config"
	"serwer-udostepnien/internal/models"
)

func (m *Manager) canShare(ctx context.Context, s *models.Share, pol *config.SharePolicy) error {
	if !pol.Enabled {
		return policyf("Sharing is disabled", "sharing is disabled by policy")
	}

	disabled, err := m.sharingDisabledForUser(ctx, s.SharedBy, pol)
	if err != nil {
		return err
	}
	if disabled {
		return policyf("Sharing is disabled for you", "sharing is disabled for user %s by excluded-groups policy", s.SharedBy)
	}
	return nil
}

func (m *Manager) sharingDisabledForUser(ctx context.Context, uid string, pol *config.SharePolicy) (bool, error) {
	if len(pol.ExcludedGroups) == 0 {
		return false, nil
	}
	userGroups, err := m.groups.UserGroups(ctx, uid)
	if err != nil {
		return false, err
	}
	return intersects(userGroups, pol.ExcludedGroups), nil
}

// generalCreateChecks validates everything that holds for every share type
// and returns the resolved node for reuse.
func (m *Manager) generalCreateChecks(ctx context.Context, s *models.Share, pol *config.SharePolicy) (*models.Node, error) {
	switch s.ShareType {
	case models.ShareTypeUser:
		exists, err := m.users.UserExists(ctx, s.SharedWith)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, validationf("share recipient is not a valid user")
		}
	case models.ShareTypeGroup:
		exists, err := m.groups.GroupExists(ctx, s.SharedWith)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, validationf("share recipient is not a valid group")
		}
	case models.ShareTypeLink:
		if s.SharedWith != "" {
			return nil, validationf("share recipient should be empty for link shares")
		}
	case models.ShareTypeEmail, models.ShareTypeRemote, models.ShareTypeRemoteGroup:
		if s.SharedWith == "" {
			return nil, validationf("share recipient should not be empty")
		}
	case models.ShareTypeRoom:
		// Handled by a late-registered provider; the recipient is opaque
		// to the manager.
	default:
		return nil, validationf("unknown share type %d", int(s.ShareType))
	}

	if s.SharedBy == "" {
		return nil, validationf("share initiator must be set")
	}

	if s.ShareType == models.ShareTypeUser && s.SharedWith == s.SharedBy {
		return nil, validationf("cannot share with yourself")
	}

	node, err := m.nodes.GetNode(ctx, s.NodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, validationf("shared node must be set")
	}
	if node.NodeType != models.NodeTypeFile && node.NodeType != models.NodeTypeFolder {
		return nil, validationf("shared node must be either a file or a folder")
	}
	if node.IsRoot() {
		return nil, validationf("you cannot share your root folder")
	}

	if !s.Permissions.Valid() {
		return nil, validationf("valid permissions are required for sharing")
	}

	if node.NodeType == models.NodeTypeFile && s.Permissions&(models.PermissionCreate|models.PermissionDelete) != 0 {
		return nil, validationf("file shares cannot have create or delete permissions")
	}

	// Link-like shares may drop read permissions to allow uploads into
	// hidden folders.
	noReadRequired := s.ShareType == models.ShareTypeLink || s.ShareType == models.ShareTypeEmail
	if !noReadRequired && !s.Permissions.Has(models.PermissionRead) {
		return nil, validationf("shares need at least read permissions")
	}

	ceiling, err := m.nodes.EffectivePermissions(ctx, node.ID, s.SharedBy)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.SubsetOf(ceiling) {
		path, perr := m.nodes.Path(ctx, node.ID)
		if perr != nil {
			path = node.Name
		}
		return nil, policyf("Cannot increase permissions", "cannot increase permissions of %s beyond %d", path, int(ceiling))
	}

	return node, nil
}

func (m *Manager) userCreateChecks(ctx context.Context, s *models.Share, pol *config.SharePolicy) error {
	if pol.GroupMembersOnly {
		byGroups, err := m.groups.UserGroups(ctx, s.SharedBy)
		if err != nil {
			return err
		}
		withGroups, err := m.groups.UserGroups(ctx, s.SharedWith)
		if err != nil {
			return err
		}
		common := intersect(byGroups, withGroups)
		common = subtract(common, pol.GroupMembersOnlyExcluded)
		if len(common) == 0 {
			return policyf("Sharing is only allowed with group members", "user share %s -> %s rejected, no common group", s.SharedBy, s.SharedWith)
		}
	}

	provider, err := m.registry.ProviderForType(models.ShareTypeUser)
	if err != nil {
		return err
	}
	existing, err := provider.GetSharesByNode(ctx, s.NodeID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == s.ID && other.ProviderID == s.ProviderID && s.ID != 0 {
			continue
		}

		if other.ShareType == s.ShareType && other.SharedWith == s.SharedWith {
			return policyf("This item is already shared with that account", "node %s already shared with user %s", s.NodeID, s.SharedWith)
		}

		// Group-derived duplicate: the recipient already has access via a
		// group share from a different owner.
		if other.ShareType == models.ShareTypeGroup && other.ShareOwner != s.ShareOwner {
			member, err := m.groups.InGroup(ctx, s.SharedWith, other.SharedWith)
			if err != nil {
				return err
			}
			if member {
				return policyf("This item is already shared with that account", "node %s already reaches user %s via group %s", s.NodeID, s.SharedWith, other.SharedWith)
			}
		}
	}
	return nil
}

func (m *Manager) groupCreateChecks(ctx context.Context, s *models.Share, pol *config.SharePolicy) error {
	if !pol.AllowGroupSharing {
		return policyf("Group sharing is not allowed", "group sharing disabled by policy")
	}

	if pol.GroupMembersOnly && !contains(pol.GroupMembersOnlyExcluded, s.SharedWith) {
		member, err := m.groups.InGroup(ctx, s.SharedBy, s.SharedWith)
		if err != nil {
			return err
		}
		if !member {
			return policyf("Sharing is only allowed within your own groups", "user %s is not a member of group %s", s.SharedBy, s.SharedWith)
		}
	}

	provider, err := m.registry.ProviderForType(models.ShareTypeGroup)
	if err != nil {
		return err
	}
	existing, err := provider.GetSharesByNode(ctx, s.NodeID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == s.ID && other.ProviderID == s.ProviderID && s.ID != 0 {
			continue
		}
		if other.ShareType == models.ShareTypeGroup && other.SharedWith == s.SharedWith {
			return policyf("Path is already shared with this group", "node %s already shared with group %s", s.NodeID, s.SharedWith)
		}
	}
	return nil
}

func (m *Manager) linkCreateChecks(ctx context.Context, s *models.Share, pol *config.SharePolicy) error {
	allowed, err := m.linkSharingAllowed(ctx, s.SharedBy, pol)
	if err != nil {
		return err
	}
	if !allowed {
		return policyf("Link sharing is not allowed", "link sharing disabled for %s", s.SharedBy)
	}

	if s.NodeType == models.NodeTypeFolder && !pol.AllowPublicUpload &&
		s.Permissions&(models.PermissionCreate|models.PermissionUpdate|models.PermissionDelete) != 0 {
		return validationf("public upload is not allowed")
	}
	return nil
}

func (m *Manager) linkSharingAllowed(ctx context.Context, uid string, pol *config.SharePolicy) (bool, error) {
	if !pol.AllowLinks {
		return false, nil
	}
	if len(pol.AllowLinksExcluded) == 0 || uid == "" {
		return true, nil
	}
	userGroups, err := m.groups.UserGroups(ctx, uid)
	if err != nil {
		return false, err
	}
	return !intersects(userGroups, pol.AllowLinksExcluded), nil
}

func intersects(a, b []string) bool {
	return len(intersect(a, b)) > 0
}

func intersect(a, b []string) []string {
	var out []string
	for _, x := range a {
		if contains(b, x) {
			out = append(out, x)
		}
	}
	return out
}

func subtract(a, b []string) []string {
	var out []string
	for _, x := range a {
		if !contains(b, x) {
			out = append(out, x)
		}
	}
	return out
}

func contains(list []string, x string) bool {
	for _, v := range list {
		if v == x {
			return true
		}
	}
	return false
}
