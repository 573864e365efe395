package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/models"
	"serwer-udostepnien/internal/share"
)

const MailProviderID = "mailshare"

// MailShareProvider persists email shares in the same relation under its own
// provider id. It owns password hashing for its shares because the plaintext
// still has to reach the recipient's mailbox.
type MailShareProvider struct {
	store  *Store
	hasher share.Hasher
	mailer share.Mailer
	log    zerolog.Logger
}

func NewMailShareProvider(store *Store, hasher share.Hasher, mailer share.Mailer, log zerolog.Logger) *MailShareProvider {
	return &MailShareProvider{
		store:  store,
		hasher: hasher,
		mailer: mailer,
		log:    log.With().Str("provider", MailProviderID).Logger(),
	}
}

func (p *MailShareProvider) Identifier() string { return MailProviderID }

func (p *MailShareProvider) SupportsType(t models.ShareType) bool {
	return t == models.ShareTypeEmail
}

func (p *MailShareProvider) stamp(shares ...*models.Share) {
	for _, s := range shares {
		if s != nil {
			s.ProviderID = MailProviderID
		}
	}
}

func (p *MailShareProvider) Create(ctx context.Context, s *models.Share) (*models.Share, error) {
	existing, err := p.store.ListSharesByNode(ctx, s.NodeID, typeInts(models.ShareTypeEmail))
	if err != nil {
		return nil, err
	}
	for _, other := range existing {
		if other.SharedWith == s.SharedWith {
			return nil, &share.PolicyError{
				Message: fmt.Sprintf("node %s already shared with address %s", s.NodeID, s.SharedWith),
				Hint:    "Path is already shared with this recipient",
			}
		}
	}

	var plainPassword string
	if s.Password != nil && *s.Password != "" {
		plainPassword = *s.Password
		hash, err := p.hasher.Hash(plainPassword)
		if err != nil {
			return nil, err
		}
		s.Password = &hash
	}

	created, err := p.store.InsertShare(ctx, s)
	if err != nil {
		return nil, err
	}
	p.stamp(created)

	mailedPassword := plainPassword
	if s.SendPasswordByTalk {
		// The password travels over the call, only the link goes by mail.
		mailedPassword = ""
	}
	if err := p.mailer.SendShareNotification(ctx, created, mailedPassword); err != nil {
		// A share nobody was told about is useless; take it back out.
		if delErr := p.store.DeleteShareByID(ctx, created.ID); delErr != nil {
			p.log.Error().Err(delErr).Int64("id", created.ID).Msg("cannot roll back unmailed share")
		}
		return nil, &share.ProviderError{Message: "failed to send share notification", Err: err}
	}

	return created, nil
}

func (p *MailShareProvider) Update(ctx context.Context, s *models.Share, plainPassword string) (*models.Share, error) {
	if plainPassword != "" {
		hash, err := p.hasher.Hash(plainPassword)
		if err != nil {
			return nil, err
		}
		s.Password = &hash
	}

	updated, err := p.store.UpdateShare(ctx, s)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &share.NotFoundError{What: "share does not exist anymore"}
	}
	p.stamp(updated)

	if plainPassword != "" && !updated.SendPasswordByTalk {
		if err := p.mailer.SendShareNotification(ctx, updated, plainPassword); err != nil {
			p.log.Warn().Err(err).Int64("id", updated.ID).Msg("cannot mail updated share password")
		}
	}

	return updated, nil
}

func (p *MailShareProvider) Delete(ctx context.Context, s *models.Share) error {
	return p.store.DeleteShareByID(ctx, s.ID)
}

func (p *MailShareProvider) GetByID(ctx context.Context, id int64, recipient string) (*models.Share, error) {
	s, err := p.store.GetShareByID(ctx, id, typeInts(models.ShareTypeEmail))
	if err != nil || s == nil {
		return nil, err
	}
	p.stamp(s)
	return s, nil
}

func (p *MailShareProvider) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	s, err := p.store.GetShareByToken(ctx, token, typeInts(models.ShareTypeEmail))
	if err != nil || s == nil {
		return nil, err
	}
	p.stamp(s)
	return s, nil
}

// GetChildren is always empty; nothing re-shares off an email share.
func (p *MailShareProvider) GetChildren(ctx context.Context, s *models.Share) ([]*models.Share, error) {
	return []*models.Share{}, nil
}

func (p *MailShareProvider) GetSharesBy(ctx context.Context, uid string, t models.ShareType, nodeID string, reshares bool, limit, offset int) ([]*models.Share, error) {
	if t != models.ShareTypeEmail {
		return []*models.Share{}, nil
	}
	shares, err := p.store.ListSharesBy(ctx, uid, typeInts(t), nodeID, reshares, limit, offset)
	if err != nil {
		return nil, err
	}
	p.stamp(shares...)
	return shares, nil
}

func (p *MailShareProvider) GetSharedWith(ctx context.Context, uid string, t models.ShareType, nodeID string, limit, offset int) ([]*models.Share, error) {
	if t != models.ShareTypeEmail {
		return []*models.Share{}, nil
	}
	shares, err := p.store.ListSharesWithRecipient(ctx, uid, typeInts(t), nodeID, limit, offset)
	if err != nil {
		return nil, err
	}
	p.stamp(shares...)
	return shares, nil
}

func (p *MailShareProvider) GetSharesByNode(ctx context.Context, nodeID string) ([]*models.Share, error) {
	shares, err := p.store.ListSharesByNode(ctx, nodeID, typeInts(models.ShareTypeEmail))
	if err != nil {
		return nil, err
	}
	p.stamp(shares...)
	return shares, nil
}

func (p *MailShareProvider) GetAccessList(ctx context.Context, nodeIDs []string, currentAccess bool) (*share.AccessList, error) {
	shares, err := p.store.ListSharesByNodes(ctx, nodeIDs, typeInts(models.ShareTypeEmail))
	if err != nil {
		return nil, err
	}
	return &share.AccessList{Public: len(shares) > 0}, nil
}

func (p *MailShareProvider) Move(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	return nil, &share.ProviderError{Message: "cannot move mail shares"}
}

func (p *MailShareProvider) DeleteFromSelf(ctx context.Context, s *models.Share, recipient string) error {
	return &share.ProviderError{Message: "mail shares cannot be deleted from self"}
}

func (p *MailShareProvider) Restore(ctx context.Context, s *models.Share, recipient string) (*models.Share, error) {
	return nil, &share.ProviderError{Message: "mail shares cannot be restored"}
}

func (p *MailShareProvider) UserDeleted(ctx context.Context, uid string, t models.ShareType) error {
	if t != models.ShareTypeEmail {
		return nil
	}
	return p.store.DeleteSharesOwnedBy(ctx, uid, typeInts(models.ShareTypeEmail))
}

func (p *MailShareProvider) GroupDeleted(ctx context.Context, gid string) error { return nil }

func (p *MailShareProvider) UserRemovedFromGroup(ctx context.Context, uid, gid string) error {
	return nil
}
