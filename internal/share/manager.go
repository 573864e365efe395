package share

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/config"
	"serwer-udostepnien/internal/models"
)

// promotableTypes are the share types inspected when a deleted share may
// have orphaned re-shares built on top of it.
var promotableTypes = []models.ShareType{
	models.ShareTypeUser,
	models.ShareTypeGroup,
	models.ShareTypeLink,
	models.ShareTypeRemote,
	models.ShareTypeEmail,
}

// Manager is the single entry point for share lifecycle operations. It owns
// validation and policy; persistence is delegated to registered providers.
type Manager struct {
	registry *Registry
	users    UserResolver
	groups   GroupResolver
	nodes    NodeResolver
	hasher   Hasher
	events   *Dispatcher
	policy   func() config.SharePolicy
	log      zerolog.Logger

	// passwordPolicy optionally rejects weak share passwords.
	passwordPolicy func(password string) error

	newToken func(length int) (string, error)
	now      func() time.Time
}

func NewManager(registry *Registry, users UserResolver, groups GroupResolver, nodes NodeResolver,
	hasher Hasher, events *Dispatcher, policy func() config.SharePolicy, log zerolog.Logger) *Manager {
	return &Manager{
		registry: registry,
		users:    users,
		groups:   groups,
		nodes:    nodes,
		hasher:   hasher,
		events:   events,
		policy:   policy,
		log:      log.With().Str("component", "share-manager").Logger(),
		newToken: generateToken,
		now:      time.Now,
	}
}

// SetPasswordPolicy installs a strength check applied to every new link or
// mail share password.
func (m *Manager) SetPasswordPolicy(fn func(password string) error) {
	m.passwordPolicy = fn
}

func generateToken(length int) (string, error) {
	gen, err := nanoid.Standard(length)
	if err != nil {
		return "", err
	}
	return gen(), nil
}

// Create validates s against the sharing policy and persists it through the
// provider responsible for its type. On success the returned share carries
// its assigned id and normalized fields.
func (m *Manager) Create(ctx context.Context, s *models.Share) (*models.Share, error) {
	pol := m.policy()

	if err := m.canShare(ctx, s, &pol); err != nil {
		return nil, err
	}

	node, err := m.generalCreateChecks(ctx, s, &pol)
	if err != nil {
		return nil, err
	}
	s.NodeType = node.NodeType

	owner, err := m.resolveShareOwner(ctx, node)
	if err != nil {
		return nil, err
	}
	s.ShareOwner = owner

	var plainPassword string

	switch s.ShareType {
	case models.ShareTypeUser:
		if err := m.userCreateChecks(ctx, s, &pol); err != nil {
			return nil, err
		}
		if err := m.validateExpiration(s, pol.InternalExpire, true); err != nil {
			return nil, err
		}
	case models.ShareTypeGroup:
		if err := m.groupCreateChecks(ctx, s, &pol); err != nil {
			return nil, err
		}
		if err := m.validateExpiration(s, pol.InternalExpire, true); err != nil {
			return nil, err
		}
	case models.ShareTypeRemote, models.ShareTypeRemoteGroup:
		if err := m.validateExpiration(s, pol.RemoteExpire, true); err != nil {
			return nil, err
		}
	case models.ShareTypeLink, models.ShareTypeEmail:
		if err := m.linkCreateChecks(ctx, s, &pol); err != nil {
			return nil, err
		}
		if err := m.setLinkParent(ctx, s, node); err != nil {
			return nil, err
		}

		token, err := m.newToken(pol.TokenLength)
		if err != nil {
			return nil, err
		}
		s.Token = token

		if err := m.validateExpiration(s, pol.LinkExpire, true); err != nil {
			return nil, err
		}
		if err := m.verifyPassword(ctx, s, &pol); err != nil {
			return nil, err
		}

		if s.Password != nil && *s.Password != "" {
			plainPassword = *s.Password
			// Mail shares hash in their own provider because the plaintext
			// still has to reach the recipient's mailbox.
			if s.ShareType == models.ShareTypeLink {
				hash, err := m.hasher.Hash(plainPassword)
				if err != nil {
					return nil, err
				}
				s.Password = &hash
			}
		}
	}

	if s.ShareType == models.ShareTypeUser && s.SharedWith == s.ShareOwner {
		return nil, validationf("cannot share with the share owner")
	}

	s.Target = path.Join(pol.ShareFolder, node.Name)

	if err := m.events.veto(ctx, EventBeforeCreate, s); err != nil {
		return nil, &VetoError{Reason: err.Error()}
	}

	provider, err := m.registry.ProviderForType(s.ShareType)
	if err != nil {
		return nil, err
	}
	created, err := provider.Create(ctx, s)
	if err != nil {
		return nil, err
	}

	m.log.Info().
		Str("share", created.FullID()).
		Str("type", created.ShareType.String()).
		Str("node", created.NodeID).
		Str("by", created.SharedBy).
		Msg("share created")
	m.events.dispatch(ctx, EventCreated, created)

	return created, nil
}

// resolveShareOwner walks external mounts up to the node actually owned by a
// local account, so re-shares of externally mounted trees attach to the real
// owner.
func (m *Manager) resolveShareOwner(ctx context.Context, node *models.Node) (string, error) {
	cur := node
	for cur.Mount == models.MountExternal && cur.ParentID != nil {
		parent, err := m.nodes.GetNode(ctx, *cur.ParentID)
		if err != nil {
			return "", err
		}
		if parent == nil {
			break
		}
		cur = parent
	}
	return cur.OwnerID, nil
}

// setLinkParent links a link or mail share to the share through which its
// creator received the node, so deleting that chain can cascade here.
func (m *Manager) setLinkParent(ctx context.Context, s *models.Share, node *models.Node) error {
	if s.SharedBy == node.OwnerID {
		s.ParentID = nil
		return nil
	}
	src, err := m.nodes.AccessSource(ctx, node.ID, s.SharedBy)
	if err != nil {
		return err
	}
	s.ParentID = src
	return nil
}

// Update validates and persists changed fields of s, which must carry a full
// id. The share type is immutable and the recipient may only change on user
// shares.
func (m *Manager) Update(ctx context.Context, s *models.Share) (*models.Share, error) {
	pol := m.policy()

	if err := m.canShare(ctx, s, &pol); err != nil {
		return nil, err
	}
	if s.ProviderID == "" || s.ID == 0 {
		return nil, validationf("share does not have a full id")
	}

	provider, err := m.registry.Provider(s.ProviderID)
	if err != nil {
		return nil, err
	}
	orig, err := provider.GetByID(ctx, s.ID, "")
	if err != nil {
		return nil, err
	}
	if orig == nil {
		return nil, notFoundf("share %s does not exist", s.FullID())
	}

	if orig.ShareType != s.ShareType {
		return nil, validationf("cannot change share type")
	}
	if orig.SharedWith != s.SharedWith && s.ShareType != models.ShareTypeUser {
		return nil, validationf("can only update recipient on user shares")
	}
	if s.ShareType == models.ShareTypeUser && s.SharedWith == orig.ShareOwner {
		return nil, validationf("cannot share with the share owner")
	}
	s.ShareOwner = orig.ShareOwner
	s.NodeID = orig.NodeID
	s.NodeType = orig.NodeType
	s.Token = orig.Token

	if _, err := m.generalCreateChecks(ctx, s, &pol); err != nil {
		return nil, err
	}

	expirationChanged := !equalTimePtr(orig.ExpirationDate, s.ExpirationDate)
	passwordChanged := false
	var plainPassword string

	switch s.ShareType {
	case models.ShareTypeUser:
		if err := m.userCreateChecks(ctx, s, &pol); err != nil {
			return nil, err
		}
		if expirationChanged {
			if err := m.validateExpiration(s, pol.InternalExpire, false); err != nil {
				return nil, err
			}
		}
	case models.ShareTypeGroup:
		if err := m.groupCreateChecks(ctx, s, &pol); err != nil {
			return nil, err
		}
		if expirationChanged {
			if err := m.validateExpiration(s, pol.InternalExpire, false); err != nil {
				return nil, err
			}
		}
	case models.ShareTypeRemote, models.ShareTypeRemoteGroup:
		if expirationChanged {
			if err := m.validateExpiration(s, pol.RemoteExpire, false); err != nil {
				return nil, err
			}
		}
	case models.ShareTypeLink, models.ShareTypeEmail:
		if err := m.linkCreateChecks(ctx, s, &pol); err != nil {
			return nil, err
		}

		passwordChanged, err = m.updatePasswordIfNeeded(ctx, s, orig, &pol)
		if err != nil {
			return nil, err
		}

		if s.SendPasswordByTalk && s.Password == nil {
			return nil, validationf("cannot enable sending the password by talk with an empty password")
		}
		if s.ShareType == models.ShareTypeEmail && !passwordChanged {
			if s.SendPasswordByTalk && !orig.SendPasswordByTalk {
				return nil, validationf("cannot enable sending the password by talk without setting a new password")
			}
			if !s.SendPasswordByTalk && orig.SendPasswordByTalk {
				return nil, validationf("cannot disable sending the password by talk without setting a new password")
			}
		}

		if passwordChanged && s.Password != nil {
			plainPassword = *s.Password
			if s.ShareType == models.ShareTypeLink {
				hash, err := m.hasher.Hash(plainPassword)
				if err != nil {
					return nil, err
				}
				s.Password = &hash
			}
		}

		if expirationChanged {
			if err := m.validateExpiration(s, pol.LinkExpire, false); err != nil {
				return nil, err
			}
		}
	}

	updated, err := provider.Update(ctx, s, plainPassword)
	if err != nil {
		return nil, err
	}

	m.events.dispatch(ctx, EventUpdated, updated)
	if passwordChanged {
		m.events.dispatch(ctx, EventPasswordUpdated, updated)
	}

	return updated, nil
}

// Delete removes s and, depth first, every share that re-shares it. Eligible
// re-shares whose creator keeps access through another grant are promoted
// instead of deleted lazily later.
func (m *Manager) Delete(ctx context.Context, s *models.Share) error {
	if s.ProviderID == "" || s.ID == 0 {
		return validationf("share does not have a full id")
	}

	if err := m.events.veto(ctx, EventBeforeDelete, s); err != nil {
		return &VetoError{Reason: err.Error()}
	}

	if err := m.deleteChildren(ctx, s); err != nil {
		return err
	}

	provider, err := m.registry.Provider(s.ProviderID)
	if err != nil {
		return err
	}
	if err := provider.Delete(ctx, s); err != nil {
		return err
	}

	m.log.Info().Str("share", s.FullID()).Str("type", s.ShareType.String()).Msg("share deleted")
	m.events.dispatch(ctx, EventDeleted, s)

	m.promoteReshares(ctx, s)
	return nil
}

// deleteChildren removes the re-share subtree below s, children before
// parents, routing each child through the provider owning its type. Only the
// root deletion is cancelable; once the cascade runs it runs to the end.
func (m *Manager) deleteChildren(ctx context.Context, s *models.Share) error {
	provider, err := m.registry.Provider(s.ProviderID)
	if err != nil {
		return err
	}
	children, err := provider.GetChildren(ctx, s)
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := m.deleteChildren(ctx, child); err != nil {
			return err
		}
		childProvider, err := m.registry.ProviderForType(child.ShareType)
		if err != nil {
			return err
		}
		if err := childProvider.Delete(ctx, child); err != nil {
			return err
		}
		m.events.dispatch(ctx, EventDeleted, child)
	}
	return nil
}

// promoteReshares reassigns re-shares stranded by the deletion of s to the
// deleted share's initiator, provided their creator lost the backing access.
// Failures are logged and left for lazy invalidation.
func (m *Manager) promoteReshares(ctx context.Context, s *models.Share) {
	var affected []string
	switch s.ShareType {
	case models.ShareTypeUser:
		affected = []string{s.SharedWith}
	case models.ShareTypeGroup:
		members, err := m.groups.GroupMembers(ctx, s.SharedWith)
		if err != nil {
			m.log.Warn().Err(err).Str("share", s.FullID()).Msg("cannot enumerate group for re-share promotion")
			return
		}
		for _, uid := range members {
			if uid != s.ShareOwner && uid != s.SharedBy {
				affected = append(affected, uid)
			}
		}
	default:
		return
	}

	node, err := m.nodes.GetNode(ctx, s.NodeID)
	if err != nil || node == nil {
		return
	}

	nodeFilter := node.ID
	if node.IsFolder() {
		// Re-shares anywhere below the folder are affected too.
		nodeFilter = ""
	}

	pol := m.policy()
	for _, provider := range m.registry.All() {
		for _, t := range promotableTypes {
			if !provider.SupportsType(t) {
				continue
			}
			for _, uid := range affected {
				reshares, err := provider.GetSharesBy(ctx, uid, t, nodeFilter, false, -1, 0)
				if err != nil {
					m.log.Warn().Err(err).Str("uid", uid).Msg("cannot list re-shares for promotion")
					continue
				}
				for _, reshare := range reshares {
					if nodeFilter == "" {
						inSubtree, err := m.nodeWithin(ctx, reshare.NodeID, node.ID)
						if err != nil || !inSubtree {
							continue
						}
					}
					m.promoteReshare(ctx, reshare, s.SharedBy, &pol)
				}
			}
		}
	}
}

func (m *Manager) promoteReshare(ctx context.Context, reshare *models.Share, newInitiator string, pol *config.SharePolicy) {
	if _, err := m.generalCreateChecks(ctx, reshare, pol); err == nil {
		// Creator still has enough access elsewhere, nothing to do.
		return
	}

	reshare.SharedBy = newInitiator
	if _, err := m.Update(ctx, reshare); err != nil {
		m.log.Warn().Err(err).Str("share", reshare.FullID()).Msg("re-share promotion failed, leaving for lazy invalidation")
	}
}

func (m *Manager) nodeWithin(ctx context.Context, nodeID, rootID string) (bool, error) {
	if nodeID == rootID {
		return true, nil
	}
	ancestors, err := m.nodes.AncestorIDs(ctx, nodeID)
	if err != nil {
		return false, err
	}
	return contains(ancestors, rootID), nil
}

// Move changes the recipient-side target of a user or group share.
func (m *Manager) Move(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	switch s.ShareType {
	case models.ShareTypeLink, models.ShareTypeEmail:
		return nil, validationf("cannot change target of link share")
	case models.ShareTypeUser:
		if s.SharedWith != recipient {
			return nil, validationf("invalid share recipient")
		}
	case models.ShareTypeGroup:
		member, err := m.groups.InGroup(ctx, recipient, s.SharedWith)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, validationf("invalid share recipient")
		}
	}

	provider, err := m.registry.Provider(s.ProviderID)
	if err != nil {
		return nil, err
	}
	moved, err := provider.Move(ctx, s, recipient)
	if err != nil {
		return nil, err
	}
	m.events.dispatch(ctx, EventMoved, moved)
	return moved, nil
}

// DeleteFromSelf removes the recipient's view of a share without touching
// anyone else's access.
func (m *Manager) DeleteFromSelf(ctx context.Context, s *models.Share, recipient string) error {
	provider, err := m.registry.Provider(s.ProviderID)
	if err != nil {
		return err
	}
	if err := provider.DeleteFromSelf(ctx, s, recipient); err != nil {
		return err
	}
	m.events.dispatch(ctx, EventDeletedFromSelf, s)
	return nil
}

// Restore undoes a previous DeleteFromSelf for the recipient.
func (m *Manager) Restore(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	provider, err := m.registry.Provider(s.ProviderID)
	if err != nil {
		return nil, err
	}
	restored, err := provider.Restore(ctx, s, recipient)
	if err != nil {
		return nil, err
	}
	m.events.dispatch(ctx, EventRestored, restored)
	return restored, nil
}

// GetByID resolves a full id of the form "providerID:id". recipient, when
// set, resolves group overrides from that user's point of view.
func (m *Manager) GetByID(ctx context.Context, fullID, recipient string) (*models.Share, error) {
	providerID, id, err := splitFullID(fullID)
	if err != nil {
		return nil, err
	}

	provider, err := m.registry.Provider(providerID)
	if err != nil {
		return nil, notFoundf("share %s does not exist", fullID)
	}
	s, err := provider.GetByID(ctx, id, recipient)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFoundf("share %s does not exist", fullID)
	}

	if err := m.checkShare(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByToken resolves a public token across all providers. Folder link
// shares are clamped to read-only views when public upload is disabled.
func (m *Manager) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	// A token colliding with an account name is suspicious enough to hide.
	if exists, err := m.users.UserExists(ctx, token); err != nil {
		return nil, err
	} else if exists {
		return nil, notFoundf("share token is invalid")
	}

	var s *models.Share
	for _, provider := range m.registry.All() {
		found, err := provider.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if found != nil {
			s = found
			break
		}
	}
	if s == nil {
		return nil, notFoundf("there is no share with token %s", token)
	}

	pol := m.policy()
	if !pol.AllowPublicUpload && s.NodeType == models.NodeTypeFolder &&
		(s.ShareType == models.ShareTypeLink || s.ShareType == models.ShareTypeEmail) {
		s.Permissions &^= models.PermissionCreate | models.PermissionUpdate
	}

	if err := m.checkShare(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSharesBy lists shares created by uid of type t, optionally filtered to
// one node and optionally including re-shares of nodes uid does not own.
// Expired shares found on the way are deleted and skipped. Offsets stay
// stable across those deletions, so a page can come back short of limit
// while later pages still hold shares.
func (m *Manager) GetSharesBy(ctx context.Context, uid string, t models.ShareType, nodeID string, reshares bool, limit, offset int) ([]*models.Share, error) {
	provider, err := m.registry.ProviderForType(t)
	if err != nil {
		return nil, err
	}

	if limit < 0 {
		all, err := provider.GetSharesBy(ctx, uid, t, nodeID, reshares, -1, offset)
		if err != nil {
			return nil, err
		}
		return m.filterExpired(ctx, all), nil
	}

	out := make([]*models.Share, 0, limit)
	for len(out) < limit {
		chunk, err := provider.GetSharesBy(ctx, uid, t, nodeID, reshares, limit-len(out), offset)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		offset += len(chunk)
		out = append(out, m.filterExpired(ctx, chunk)...)
	}
	return out, nil
}

// GetSharedWith lists shares received by uid of type t, with group overrides
// already folded in by the provider.
func (m *Manager) GetSharedWith(ctx context.Context, uid string, t models.ShareType, nodeID string, limit, offset int) ([]*models.Share, error) {
	provider, err := m.registry.ProviderForType(t)
	if err != nil {
		return nil, err
	}
	shares, err := provider.GetSharedWith(ctx, uid, t, nodeID, limit, offset)
	if err != nil {
		return nil, err
	}
	return m.filterExpired(ctx, shares), nil
}

// GetSharesByNode lists every share of any type on one node across all
// providers.
func (m *Manager) GetSharesByNode(ctx context.Context, nodeID string) ([]*models.Share, error) {
	out := []*models.Share{}
	for _, provider := range m.registry.All() {
		shares, err := provider.GetSharesByNode(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		out = append(out, m.filterExpired(ctx, shares)...)
	}
	return out, nil
}

// GetAccessList aggregates who can reach nodeID. With recursive set the
// ancestor chain is consulted too, so shares on parent folders count. The
// node owner is always included.
func (m *Manager) GetAccessList(ctx context.Context, nodeID string, recursive, currentAccess bool) (*AccessList, error) {
	node, err := m.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, notFoundf("node %s does not exist", nodeID)
	}

	owner, err := m.resolveShareOwner(ctx, node)
	if err != nil {
		return nil, err
	}

	al := &AccessList{}
	if currentAccess {
		ownerPath, err := m.nodes.Path(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		al.UserAccess = map[string]NodeAccess{
			owner: {NodeID: node.ID, Path: ownerPath},
		}
	} else {
		al.Users = []string{owner}
	}

	nodeIDs := []string{node.ID}
	if recursive {
		nodeIDs, err = m.nodes.AncestorIDs(ctx, node.ID)
		if err != nil {
			return nil, err
		}
	}

	for _, provider := range m.registry.All() {
		partial, err := provider.GetAccessList(ctx, nodeIDs, currentAccess)
		if err != nil {
			return nil, err
		}
		mergeAccessLists(al, partial)
	}
	return al, nil
}

func mergeAccessLists(dst, src *AccessList) {
	if src == nil {
		return
	}
	dst.Public = dst.Public || src.Public
	dst.Remote = dst.Remote || src.Remote
	for _, uid := range src.Users {
		if !contains(dst.Users, uid) {
			dst.Users = append(dst.Users, uid)
		}
	}
	for uid, access := range src.UserAccess {
		if dst.UserAccess == nil {
			dst.UserAccess = make(map[string]NodeAccess)
		}
		if _, ok := dst.UserAccess[uid]; !ok {
			dst.UserAccess[uid] = access
		}
	}
}

// CheckPassword verifies a link or mail share password candidate. A stored
// hash at a legacy cost is transparently rehashed on success.
func (m *Manager) CheckPassword(ctx context.Context, s *models.Share, password string) (bool, error) {
	if s.ShareType != models.ShareTypeLink && s.ShareType != models.ShareTypeEmail {
		return false, nil
	}
	if s.Password == nil || password == "" {
		return false, nil
	}

	ok, newHash, err := m.hasher.Verify(password, *s.Password)
	if err != nil || !ok {
		return false, err
	}

	if newHash != "" {
		s.Password = &newHash
		provider, perr := m.registry.Provider(s.ProviderID)
		if perr == nil {
			if _, uerr := provider.Update(ctx, s, ""); uerr != nil {
				m.log.Warn().Err(uerr).Str("share", s.FullID()).Msg("cannot persist rehashed share password")
			}
		}
	}
	return true, nil
}

// UserDeleted fans the account deletion out to every provider holding shares
// created by, owned by or received by uid.
func (m *Manager) UserDeleted(ctx context.Context, uid string) error {
	for _, t := range promotableTypes {
		provider, err := m.registry.ProviderForType(t)
		if err != nil {
			continue
		}
		if err := provider.UserDeleted(ctx, uid, t); err != nil {
			return fmt.Errorf("cleaning shares of type %s for deleted user %s: %w", t, uid, err)
		}
	}
	return nil
}

// GroupDeleted drops every group and remote-group share targeting gid,
// including per-member overrides.
func (m *Manager) GroupDeleted(ctx context.Context, gid string) error {
	for _, t := range []models.ShareType{models.ShareTypeGroup, models.ShareTypeRemoteGroup} {
		provider, err := m.registry.ProviderForType(t)
		if err != nil {
			continue
		}
		if err := provider.GroupDeleted(ctx, gid); err != nil {
			return fmt.Errorf("cleaning shares of deleted group %s: %w", gid, err)
		}
	}
	return nil
}

// UserRemovedFromGroup drops uid's overrides below gid's group shares so a
// rejoin starts from the plain group grant again.
func (m *Manager) UserRemovedFromGroup(ctx context.Context, uid, gid string) error {
	for _, t := range []models.ShareType{models.ShareTypeGroup, models.ShareTypeRemoteGroup} {
		provider, err := m.registry.ProviderForType(t)
		if err != nil {
			continue
		}
		if err := provider.UserRemovedFromGroup(ctx, uid, gid); err != nil {
			return fmt.Errorf("cleaning overrides of %s in group %s: %w", uid, gid, err)
		}
	}
	return nil
}

// checkShare implements lazy expiry: an expired share is deleted the moment
// any read path touches it and reported as missing.
func (m *Manager) checkShare(ctx context.Context, s *models.Share) error {
	if s.IsExpired(m.now()) {
		if err := m.Delete(ctx, s); err != nil {
			m.log.Warn().Err(err).Str("share", s.FullID()).Msg("cannot delete expired share")
		}
		return notFoundf("share %s no longer exists", s.FullID())
	}
	return nil
}

func (m *Manager) filterExpired(ctx context.Context, shares []*models.Share) []*models.Share {
	out := make([]*models.Share, 0, len(shares))
	for _, s := range shares {
		if err := m.checkShare(ctx, s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func splitFullID(fullID string) (string, int64, error) {
	providerID, raw, ok := strings.Cut(fullID, ":")
	if !ok || providerID == "" {
		return "", 0, validationf("invalid share id %q", fullID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, validationf("invalid share id %q", fullID)
	}
	return providerID, id, nil
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
