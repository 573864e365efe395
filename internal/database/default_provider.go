package database

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/models"
	"serwer-udostepnien/internal/share"
)

const DefaultProviderID = "internal"

// DefaultShareProvider persists user, group and link shares in the shares
// relation. Group shares may carry per-recipient override rows
// (share_type 2) below them; those rows never leave this provider as
// standalone shares.
type DefaultShareProvider struct {
	store  *Store
	groups share.GroupResolver
	log    zerolog.Logger
}

func NewDefaultShareProvider(store *Store, groups share.GroupResolver, log zerolog.Logger) *DefaultShareProvider {
	return &DefaultShareProvider{
		store:  store,
		groups: groups,
		log:    log.With().Str("provider", DefaultProviderID).Logger(),
	}
}

func (p *DefaultShareProvider) Identifier() string { return DefaultProviderID }

func (p *DefaultShareProvider) SupportsType(t models.ShareType) bool {
	switch t {
	case models.ShareTypeUser, models.ShareTypeGroup, models.ShareTypeLink:
		return true
	}
	return false
}

func (p *DefaultShareProvider) supportedTypes() []int32 {
	return typeInts(models.ShareTypeUser, models.ShareTypeGroup, models.ShareTypeLink)
}

func (p *DefaultShareProvider) stamp(shares ...*models.Share) {
	for _, s := range shares {
		if s != nil {
			s.ProviderID = DefaultProviderID
		}
	}
}

func (p *DefaultShareProvider) Create(ctx context.Context, s *models.Share) (*models.Share, error) {
	created, err := p.store.InsertShare(ctx, s)
	if err != nil {
		return nil, err
	}
	p.stamp(created)
	return created, nil
}

func (p *DefaultShareProvider) Update(ctx context.Context, s *models.Share, plainPassword string) (*models.Share, error) {
	var updated *models.Share

	if s.ShareType == models.ShareTypeGroup {
		// Override children inherit ownership, expiration and, where not
		// zeroed, permissions of the canonical row.
		err := p.store.ExecTx(ctx, func(q *Queries) error {
			var err error
			updated, err = q.UpdateShare(ctx, s)
			if err != nil {
				return err
			}
			if updated == nil {
				return nil
			}
			return q.SyncGroupOverrides(ctx, updated)
		})
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		updated, err = p.store.UpdateShare(ctx, s)
		if err != nil {
			return nil, err
		}
	}

	if updated == nil {
		return nil, &share.NotFoundError{What: "share does not exist anymore"}
	}
	p.stamp(updated)
	return updated, nil
}

func (p *DefaultShareProvider) Delete(ctx context.Context, s *models.Share) error {
	if s.ShareType == models.ShareTypeGroup {
		return p.store.DeleteShareWithOverrides(ctx, s.ID)
	}
	return p.store.DeleteShareByID(ctx, s.ID)
}

func (p *DefaultShareProvider) GetByID(ctx context.Context, id int64, recipient string) (*models.Share, error) {
	s, err := p.store.GetShareByID(ctx, id, p.supportedTypes())
	if err != nil || s == nil {
		return nil, err
	}
	p.stamp(s)

	if recipient != "" && s.ShareType == models.ShareTypeGroup {
		if err := p.resolveGroupShares(ctx, []*models.Share{s}, recipient); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *DefaultShareProvider) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	s, err := p.store.GetShareByToken(ctx, token, typeInts(models.ShareTypeLink))
	if err != nil || s == nil {
		return nil, err
	}
	p.stamp(s)
	return s, nil
}

func (p *DefaultShareProvider) GetChildren(ctx context.Context, s *models.Share) ([]*models.Share, error) {
	children, err := p.store.GetShareChildren(ctx, s.ID, p.supportedTypes())
	if err != nil {
		return nil, err
	}
	p.stamp(children...)
	return children, nil
}

func (p *DefaultShareProvider) GetSharesBy(ctx context.Context, uid string, t models.ShareType, nodeID string, reshares bool, limit, offset int) ([]*models.Share, error) {
	shares, err := p.store.ListSharesBy(ctx, uid, typeInts(t), nodeID, reshares, limit, offset)
	if err != nil {
		return nil, err
	}
	p.stamp(shares...)
	return shares, nil
}

func (p *DefaultShareProvider) GetSharedWith(ctx context.Context, uid string, t models.ShareType, nodeID string, limit, offset int) ([]*models.Share, error) {
	switch t {
	case models.ShareTypeUser:
		shares, err := p.store.ListSharesWithRecipient(ctx, uid, typeInts(t), nodeID, limit, offset)
		if err != nil {
			return nil, err
		}
		p.stamp(shares...)
		return shares, nil
	case models.ShareTypeGroup:
		userGroups, err := p.groups.UserGroups(ctx, uid)
		if err != nil {
			return nil, err
		}
		if len(userGroups) == 0 {
			return []*models.Share{}, nil
		}
		shares, err := p.store.ListGroupSharesForGroups(ctx, userGroups, nodeID, limit, offset)
		if err != nil {
			return nil, err
		}
		p.stamp(shares...)
		if err := p.resolveGroupShares(ctx, shares, uid); err != nil {
			return nil, err
		}
		return shares, nil
	}
	return []*models.Share{}, nil
}

// resolveGroupShares folds uid's override rows into the canonical group
// shares, replacing permissions and target where an override exists.
func (p *DefaultShareProvider) resolveGroupShares(ctx context.Context, shares []*models.Share, uid string) error {
	if len(shares) == 0 {
		return nil
	}

	ids := make([]int64, len(shares))
	for i, s := range shares {
		ids[i] = s.ID
	}

	overrides, err := p.store.ListOverridesForShares(ctx, ids, uid)
	if err != nil {
		return err
	}

	byParent := make(map[int64]*models.Share, len(overrides))
	for _, ov := range overrides {
		if ov.ParentID != nil {
			byParent[*ov.ParentID] = ov
		}
	}

	for _, s := range shares {
		if ov, ok := byParent[s.ID]; ok {
			s.Permissions = ov.Permissions
			s.Target = ov.Target
		}
	}
	return nil
}

func (p *DefaultShareProvider) GetSharesByNode(ctx context.Context, nodeID string) ([]*models.Share, error) {
	shares, err := p.store.ListSharesByNode(ctx, nodeID, p.supportedTypes())
	if err != nil {
		return nil, err
	}
	p.stamp(shares...)
	return shares, nil
}

func (p *DefaultShareProvider) GetAccessList(ctx context.Context, nodeIDs []string, currentAccess bool) (*share.AccessList, error) {
	types := p.supportedTypes()
	if currentAccess {
		types = append(types, int32(models.ShareTypeGroupOverride))
	}

	rows, err := p.store.ListSharesByNodes(ctx, nodeIDs, types)
	if err != nil {
		return nil, err
	}

	if !currentAccess {
		return p.plainAccessList(ctx, rows)
	}
	return p.currentAccessList(ctx, rows)
}

func (p *DefaultShareProvider) plainAccessList(ctx context.Context, rows []*models.Share) (*share.AccessList, error) {
	al := &share.AccessList{Users: []string{}}

	addUser := func(uid string) {
		for _, existing := range al.Users {
			if existing == uid {
				return
			}
		}
		al.Users = append(al.Users, uid)
	}

	for _, s := range rows {
		switch s.ShareType {
		case models.ShareTypeUser:
			addUser(s.SharedWith)
		case models.ShareTypeGroup:
			members, err := p.groups.GroupMembers(ctx, s.SharedWith)
			if err != nil {
				return nil, err
			}
			for _, uid := range members {
				addUser(uid)
			}
		case models.ShareTypeLink:
			al.Public = true
		}
	}
	return al, nil
}

// currentAccessList resolves each user's effective entry point. Override
// rows take precedence over their canonical group row; a zero-permission
// override removes the user entirely. Of several entry points the shortest
// path wins.
func (p *DefaultShareProvider) currentAccessList(ctx context.Context, rows []*models.Share) (*share.AccessList, error) {
	al := &share.AccessList{UserAccess: map[string]share.NodeAccess{}}

	overrides := make(map[int64]map[string]*models.Share)
	for _, s := range rows {
		if s.ShareType == models.ShareTypeGroupOverride && s.ParentID != nil {
			if overrides[*s.ParentID] == nil {
				overrides[*s.ParentID] = make(map[string]*models.Share)
			}
			overrides[*s.ParentID][s.SharedWith] = s
		}
	}

	consider := func(uid, nodeID, target string) {
		existing, ok := al.UserAccess[uid]
		if !ok || strings.Count(target, "/") < strings.Count(existing.Path, "/") {
			al.UserAccess[uid] = share.NodeAccess{NodeID: nodeID, Path: target}
		}
	}

	for _, s := range rows {
		switch s.ShareType {
		case models.ShareTypeUser:
			consider(s.SharedWith, s.NodeID, s.Target)
		case models.ShareTypeGroup:
			members, err := p.groups.GroupMembers(ctx, s.SharedWith)
			if err != nil {
				return nil, err
			}
			for _, uid := range members {
				if ov, ok := overrides[s.ID][uid]; ok {
					if ov.Permissions == 0 {
						continue
					}
					consider(uid, ov.NodeID, ov.Target)
					continue
				}
				consider(uid, s.NodeID, s.Target)
			}
		case models.ShareTypeLink:
			al.Public = true
		}
	}
	return al, nil
}

func (p *DefaultShareProvider) Move(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	switch s.ShareType {
	case models.ShareTypeUser:
		if err := p.store.UpdateShareTarget(ctx, s.ID, s.Target); err != nil {
			return nil, err
		}
	case models.ShareTypeGroup:
		moved, err := p.store.UpdateOverrideTarget(ctx, s.ID, recipient, s.Target)
		if err != nil {
			return nil, err
		}
		if !moved {
			if _, err := p.insertOverride(ctx, s, recipient, s.Permissions, s.Target); err != nil {
				return nil, err
			}
		}
	default:
		return nil, &share.ProviderError{Message: "cannot move share of invalid type"}
	}
	return p.GetByID(ctx, s.ID, recipient)
}

func (p *DefaultShareProvider) insertOverride(ctx context.Context, groupShare *models.Share, recipient string, permissions models.Permissions, target string) (*models.Share, error) {
	parentID := groupShare.ID
	override := &models.Share{
		ShareType:      models.ShareTypeGroupOverride,
		SharedWith:     recipient,
		SharedBy:       groupShare.SharedBy,
		ShareOwner:     groupShare.ShareOwner,
		NodeID:         groupShare.NodeID,
		NodeType:       groupShare.NodeType,
		Permissions:    permissions,
		ExpirationDate: groupShare.ExpirationDate,
		Target:         target,
		ParentID:       &parentID,
	}
	return p.store.InsertShare(ctx, override)
}

// DeleteFromSelf detaches a single recipient. For group shares a
// zero-permission override hides the share without affecting the rest of the
// group; running it twice is a no-op either way.
func (p *DefaultShareProvider) DeleteFromSelf(ctx context.Context, s *models.Share, recipient string) error {
	switch s.ShareType {
	case models.ShareTypeGroup:
		exists, err := p.groups.GroupExists(ctx, s.SharedWith)
		if err != nil {
			return err
		}
		if !exists {
			return &share.ProviderError{Message: "group " + s.SharedWith + " does not exist"}
		}
		member, err := p.groups.InGroup(ctx, recipient, s.SharedWith)
		if err != nil {
			return err
		}
		if !member {
			return nil
		}

		override, err := p.store.GetGroupOverride(ctx, s.ID, recipient)
		if err != nil {
			return err
		}
		if override == nil {
			_, err := p.insertOverride(ctx, s, recipient, 0, s.Target)
			return err
		}
		return p.store.UpdateOverridePermissions(ctx, s.ID, recipient, 0)
	case models.ShareTypeUser:
		if s.SharedWith != recipient {
			return &share.ProviderError{Message: "recipient does not match"}
		}
		return p.store.DeleteShareByID(ctx, s.ID)
	}
	return &share.ProviderError{Message: "invalid share type " + s.ShareType.String()}
}

// Restore resets the recipient's override permissions back to the canonical
// group grant.
func (p *DefaultShareProvider) Restore(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	if s.ShareType != models.ShareTypeGroup {
		return nil, &share.ProviderError{Message: "cannot restore shares of type " + s.ShareType.String()}
	}

	canonical, err := p.store.GetShareByID(ctx, s.ID, typeInts(models.ShareTypeGroup))
	if err != nil {
		return nil, err
	}
	if canonical == nil {
		return nil, &share.NotFoundError{What: "share does not exist anymore"}
	}

	if err := p.store.UpdateOverridePermissions(ctx, s.ID, recipient, canonical.Permissions); err != nil {
		return nil, err
	}
	return p.GetByID(ctx, s.ID, recipient)
}

func (p *DefaultShareProvider) UserDeleted(ctx context.Context, uid string, t models.ShareType) error {
	switch t {
	case models.ShareTypeUser:
		return p.store.DeleteUserSharesOfAccount(ctx, uid)
	case models.ShareTypeGroup:
		return p.store.DeleteGroupSharesOfAccount(ctx, uid)
	case models.ShareTypeLink:
		// Link shares die with the owner or the initiator; either account
		// is enough to keep one alive, so either deletion takes it down.
		return p.store.DeleteTokenSharesOfAccount(ctx, uid, typeInts(models.ShareTypeLink))
	}
	return nil
}

func (p *DefaultShareProvider) GroupDeleted(ctx context.Context, gid string) error {
	return p.store.ExecTx(ctx, func(q *Queries) error {
		ids, err := q.GroupShareIDs(ctx, gid, models.ShareTypeGroup)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := q.DeleteOverridesByParents(ctx, ids); err != nil {
			return err
		}
		return q.DeleteSharesByIDs(ctx, ids)
	})
}

func (p *DefaultShareProvider) UserRemovedFromGroup(ctx context.Context, uid, gid string) error {
	ids, err := p.store.GroupShareIDs(ctx, gid, models.ShareTypeGroup)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return p.store.DeleteOverridesOfUserByParents(ctx, uid, ids)
}
