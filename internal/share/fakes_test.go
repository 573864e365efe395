package share

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/config"
	"serwer-udostepnien/internal/models"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type fakeUsers struct {
	existing map[string]bool
}

func (f *fakeUsers) UserExists(ctx context.Context, uid string) (bool, error) {
	return f.existing[uid], nil
}

func (f *fakeUsers) GetUser(ctx context.Context, uid string) (*models.User, error) {
	if !f.existing[uid] {
		return nil, nil
	}
	return &models.User{UID: uid, Enabled: true}, nil
}

type fakeGroups struct {
	members map[string][]string
}

func (f *fakeGroups) GroupExists(ctx context.Context, gid string) (bool, error) {
	_, ok := f.members[gid]
	return ok, nil
}

func (f *fakeGroups) InGroup(ctx context.Context, uid, gid string) (bool, error) {
	for _, member := range f.members[gid] {
		if member == uid {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGroups) UserGroups(ctx context.Context, uid string) ([]string, error) {
	var gids []string
	for gid, members := range f.members {
		for _, member := range members {
			if member == uid {
				gids = append(gids, gid)
				break
			}
		}
	}
	sort.Strings(gids)
	return gids, nil
}

func (f *fakeGroups) GroupMembers(ctx context.Context, gid string) ([]string, error) {
	return f.members[gid], nil
}

type fakeNodes struct {
	nodes   map[string]*models.Node
	perms   map[string]models.Permissions // "nodeID|uid"
	sources map[string]*int64             // "nodeID|uid"
}

func newFakeNodes() *fakeNodes {
	return &fakeNodes{
		nodes:   make(map[string]*models.Node),
		perms:   make(map[string]models.Permissions),
		sources: make(map[string]*int64),
	}
}

func (f *fakeNodes) add(id, owner, name, nodeType string, parentID *string) *models.Node {
	n := &models.Node{
		ID:       id,
		OwnerID:  owner,
		ParentID: parentID,
		Name:     name,
		NodeType: nodeType,
		Mount:    models.MountLocal,
	}
	f.nodes[id] = n
	return n
}

func (f *fakeNodes) grant(nodeID, uid string, p models.Permissions) {
	f.perms[nodeID+"|"+uid] = p
}

func (f *fakeNodes) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	return f.nodes[nodeID], nil
}

func (f *fakeNodes) AncestorIDs(ctx context.Context, nodeID string) ([]string, error) {
	var ids []string
	for n := f.nodes[nodeID]; n != nil; {
		ids = append(ids, n.ID)
		if n.ParentID == nil {
			break
		}
		n = f.nodes[*n.ParentID]
	}
	return ids, nil
}

func (f *fakeNodes) Path(ctx context.Context, nodeID string) (string, error) {
	ids, _ := f.AncestorIDs(ctx, nodeID)
	path := ""
	for _, id := range ids {
		path = "/" + f.nodes[id].Name + path
	}
	return path, nil
}

func (f *fakeNodes) EffectivePermissions(ctx context.Context, nodeID, uid string) (models.Permissions, error) {
	if n := f.nodes[nodeID]; n != nil && n.OwnerID == uid {
		return models.PermissionAll, nil
	}
	return f.perms[nodeID+"|"+uid], nil
}

func (f *fakeNodes) AccessSource(ctx context.Context, nodeID, uid string) (*int64, error) {
	return f.sources[nodeID+"|"+uid], nil
}

// plainHasher makes hashes recognizable in assertions without bcrypt cost.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Verify(password, hash string) (bool, string, error) {
	if hash == "legacy:"+password {
		return true, "hashed:" + password, nil
	}
	return hash == "hashed:"+password, "", nil
}

// memProvider is an in-memory Provider covering the types the test hands it.
type memProvider struct {
	id      string
	types   map[models.ShareType]bool
	nextID  int64
	shares  map[int64]*models.Share
	deleted []int64
	// userDeletedCalls records (uid, type) pairs handed to UserDeleted.
	userDeletedCalls []string
}

func newMemProvider(id string, types ...models.ShareType) *memProvider {
	p := &memProvider{id: id, types: make(map[models.ShareType]bool), shares: make(map[int64]*models.Share)}
	for _, t := range types {
		p.types[t] = true
	}
	return p
}

func (p *memProvider) Identifier() string { return p.id }

func (p *memProvider) SupportsType(t models.ShareType) bool { return p.types[t] }

func (p *memProvider) Create(ctx context.Context, s *models.Share) (*models.Share, error) {
	p.nextID++
	cp := *s
	cp.ID = p.nextID
	cp.ProviderID = p.id
	cp.ShareTime = testNow
	p.shares[cp.ID] = &cp
	return &cp, nil
}

func (p *memProvider) Update(ctx context.Context, s *models.Share, plainPassword string) (*models.Share, error) {
	if _, ok := p.shares[s.ID]; !ok {
		return nil, &NotFoundError{What: "share does not exist anymore"}
	}
	cp := *s
	cp.ProviderID = p.id
	p.shares[cp.ID] = &cp
	return &cp, nil
}

func (p *memProvider) Delete(ctx context.Context, s *models.Share) error {
	delete(p.shares, s.ID)
	p.deleted = append(p.deleted, s.ID)
	return nil
}

func (p *memProvider) GetByID(ctx context.Context, id int64, recipient string) (*models.Share, error) {
	s, ok := p.shares[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (p *memProvider) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	for _, s := range p.shares {
		if s.Token != "" && s.Token == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (p *memProvider) GetChildren(ctx context.Context, s *models.Share) ([]*models.Share, error) {
	out := []*models.Share{}
	for _, c := range p.sorted() {
		if c.ParentID != nil && *c.ParentID == s.ID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (p *memProvider) GetSharesBy(ctx context.Context, uid string, t models.ShareType, nodeID string, reshares bool, limit, offset int) ([]*models.Share, error) {
	out := []*models.Share{}
	for _, s := range p.sorted() {
		if s.ShareType != t {
			continue
		}
		if reshares {
			if s.ShareOwner != uid && s.SharedBy != uid {
				continue
			}
		} else if s.SharedBy != uid {
			continue
		}
		if nodeID != "" && s.NodeID != nodeID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (p *memProvider) GetSharedWith(ctx context.Context, uid string, t models.ShareType, nodeID string, limit, offset int) ([]*models.Share, error) {
	out := []*models.Share{}
	for _, s := range p.sorted() {
		if s.ShareType != t || s.SharedWith != uid {
			continue
		}
		if nodeID != "" && s.NodeID != nodeID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (p *memProvider) GetSharesByNode(ctx context.Context, nodeID string) ([]*models.Share, error) {
	out := []*models.Share{}
	for _, s := range p.sorted() {
		if s.NodeID == nodeID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (p *memProvider) GetAccessList(ctx context.Context, nodeIDs []string, currentAccess bool) (*AccessList, error) {
	al := &AccessList{}
	for _, s := range p.sorted() {
		onNode := false
		for _, id := range nodeIDs {
			if s.NodeID == id {
				onNode = true
				break
			}
		}
		if !onNode {
			continue
		}
		switch s.ShareType {
		case models.ShareTypeUser:
			if currentAccess {
				if al.UserAccess == nil {
					al.UserAccess = make(map[string]NodeAccess)
				}
				al.UserAccess[s.SharedWith] = NodeAccess{NodeID: s.NodeID, Path: s.Target}
			} else {
				al.Users = append(al.Users, s.SharedWith)
			}
		case models.ShareTypeLink, models.ShareTypeEmail:
			al.Public = true
		case models.ShareTypeRemote, models.ShareTypeRemoteGroup:
			al.Remote = true
		}
	}
	return al, nil
}

func (p *memProvider) Move(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	stored, ok := p.shares[s.ID]
	if !ok {
		return nil, &NotFoundError{What: "share does not exist anymore"}
	}
	stored.Target = s.Target
	cp := *stored
	return &cp, nil
}

func (p *memProvider) DeleteFromSelf(ctx context.Context, s *models.Share, recipient string) error {
	delete(p.shares, s.ID)
	return nil
}

func (p *memProvider) Restore(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	return p.GetByID(ctx, s.ID, recipient)
}

func (p *memProvider) UserDeleted(ctx context.Context, uid string, t models.ShareType) error {
	p.userDeletedCalls = append(p.userDeletedCalls, uid+"|"+t.String())
	return nil
}

func (p *memProvider) GroupDeleted(ctx context.Context, gid string) error { return nil }

func (p *memProvider) UserRemovedFromGroup(ctx context.Context, uid, gid string) error { return nil }

func (p *memProvider) sorted() []*models.Share {
	out := make([]*models.Share, 0, len(p.shares))
	for _, s := range p.shares {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// env bundles a manager wired to fakes with every knob tests reach for.
type env struct {
	manager  *Manager
	provider *memProvider
	registry *Registry
	events   *Dispatcher
	users    *fakeUsers
	groups   *fakeGroups
	nodes    *fakeNodes
}

func newTestEnv(pol config.SharePolicy) *env {
	e := &env{
		provider: newMemProvider("internal",
			models.ShareTypeUser, models.ShareTypeGroup, models.ShareTypeLink,
			models.ShareTypeEmail, models.ShareTypeRemote, models.ShareTypeRemoteGroup),
		registry: NewRegistry(),
		events:   NewDispatcher(),
		users:    &fakeUsers{existing: make(map[string]bool)},
		groups:   &fakeGroups{members: make(map[string][]string)},
		nodes:    newFakeNodes(),
	}
	if err := e.registry.Register(e.provider); err != nil {
		panic(err)
	}

	e.manager = NewManager(e.registry, e.users, e.groups, e.nodes, plainHasher{}, e.events,
		func() config.SharePolicy { return pol }, zerolog.Nop())
	e.manager.now = func() time.Time { return testNow }
	e.manager.newToken = func(length int) (string, error) { return "fixed-test-token", nil }
	return e
}
