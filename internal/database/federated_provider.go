package database

import (
	"context"

	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/models"
	"serwer-udostepnien/internal/share"
)

const FederatedProviderID = "federated"

// FederatedShareProvider persists remote and remote-group shares. The wire
// protocol towards the other server is out of scope; rows carry the token
// the remote side redeems.
type FederatedShareProvider struct {
	store *Store
	log   zerolog.Logger
}

func NewFederatedShareProvider(store *Store, log zerolog.Logger) *FederatedShareProvider {
	return &FederatedShareProvider{
		store: store,
		log:   log.With().Str("provider", FederatedProviderID).Logger(),
	}
}

func (p *FederatedShareProvider) Identifier() string { return FederatedProviderID }

func (p *FederatedShareProvider) SupportsType(t models.ShareType) bool {
	return t == models.ShareTypeRemote || t == models.ShareTypeRemoteGroup
}

func (p *FederatedShareProvider) supportedTypes() []int32 {
	return typeInts(models.ShareTypeRemote, models.ShareTypeRemoteGroup)
}

func (p *FederatedShareProvider) stamp(shares ...*models.Share) {
	for _, s := range shares {
		if s != nil {
			s.ProviderID = FederatedProviderID
		}
	}
}

func (p *FederatedShareProvider) Create(ctx context.Context, s *models.Share) (*models.Share, error) {
	created, err := p.store.InsertShare(ctx, s)
	if err != nil {
		return nil, err
	}
	p.stamp(created)
	return created, nil
}

func (p *FederatedShareProvider) Update(ctx context.Context, s *models.Share, plainPassword string) (*models.Share, error) {
	updated, err := p.store.UpdateShare(ctx, s)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &share.NotFoundError{What: "share does not exist anymore"}
	}
	p.stamp(updated)
	return updated, nil
}

func (p *FederatedShareProvider) Delete(ctx context.Context, s *models.Share) error {
	return p.store.DeleteShareByID(ctx, s.ID)
}

func (p *FederatedShareProvider) GetByID(ctx context.Context, id int64, recipient string) (*models.Share, error) {
	s, err := p.store.GetShareByID(ctx, id, p.supportedTypes())
	if err != nil || s == nil {
		return nil, err
	}
	p.stamp(s)
	return s, nil
}

func (p *FederatedShareProvider) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	s, err := p.store.GetShareByToken(ctx, token, p.supportedTypes())
	if err != nil || s == nil {
		return nil, err
	}
	p.stamp(s)
	return s, nil
}

func (p *FederatedShareProvider) GetChildren(ctx context.Context, s *models.Share) ([]*models.Share, error) {
	return []*models.Share{}, nil
}

func (p *FederatedShareProvider) GetSharesBy(ctx context.Context, uid string, t models.ShareType, nodeID string, reshares bool, limit, offset int) ([]*models.Share, error) {
	if !p.SupportsType(t) {
		return []*models.Share{}, nil
	}
	shares, err := p.store.ListSharesBy(ctx, uid, typeInts(t), nodeID, reshares, limit, offset)
	if err != nil {
		return nil, err
	}
	p.stamp(shares...)
	return shares, nil
}

func (p *FederatedShareProvider) GetSharedWith(ctx context.Context, uid string, t models.ShareType, nodeID string, limit, offset int) ([]*models.Share, error) {
	if !p.SupportsType(t) {
		return []*models.Share{}, nil
	}
	shares, err := p.store.ListSharesWithRecipient(ctx, uid, typeInts(t), nodeID, limit, offset)
	if err != nil {
		return nil, err
	}
	p.stamp(shares...)
	return shares, nil
}

func (p *FederatedShareProvider) GetSharesByNode(ctx context.Context, nodeID string) ([]*models.Share, error) {
	shares, err := p.store.ListSharesByNode(ctx, nodeID, p.supportedTypes())
	if err != nil {
		return nil, err
	}
	p.stamp(shares...)
	return shares, nil
}

func (p *FederatedShareProvider) GetAccessList(ctx context.Context, nodeIDs []string, currentAccess bool) (*share.AccessList, error) {
	shares, err := p.store.ListSharesByNodes(ctx, nodeIDs, p.supportedTypes())
	if err != nil {
		return nil, err
	}
	return &share.AccessList{Remote: len(shares) > 0}, nil
}

func (p *FederatedShareProvider) Move(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	return nil, &share.ProviderError{Message: "cannot move federated shares"}
}

func (p *FederatedShareProvider) DeleteFromSelf(ctx context.Context, s *models.Share, recipient string) error {
	return &share.ProviderError{Message: "federated shares cannot be deleted from self"}
}

func (p *FederatedShareProvider) Restore(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	return nil, &share.ProviderError{Message: "federated shares cannot be restored"}
}

// UserDeleted removes rows on either side of the grant; a remote share
// cannot outlive the owner or the initiator.
func (p *FederatedShareProvider) UserDeleted(ctx context.Context, uid string, t models.ShareType) error {
	if !p.SupportsType(t) {
		return nil
	}
	return p.store.DeleteTokenSharesOfAccount(ctx, uid, typeInts(t))
}

func (p *FederatedShareProvider) GroupDeleted(ctx context.Context, gid string) error {
	ids, err := p.store.GroupShareIDs(ctx, gid, models.ShareTypeRemoteGroup)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return p.store.DeleteSharesByIDs(ctx, ids)
}

func (p *FederatedShareProvider) UserRemovedFromGroup(ctx context.Context, uid, gid string) error {
	return nil
}
