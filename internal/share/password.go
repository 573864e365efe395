package share

import (
	"context"

	"serwer-udostepnien/internal/config"
	"serwer-udostepnien/internal/models"
)

// verifyPassword checks the plaintext candidate in s.Password against the
// enforcement policy and the optional strength hook. It never hashes.
func (m *Manager) verifyPassword(ctx context.Context, s *models.Share, pol *config.SharePolicy) error {
	if s.Password == nil || *s.Password == "" {
		if !pol.EnforceLinkPassword {
			return nil
		}
		excluded, err := m.passwordEnforcementExcluded(ctx, s.SharedBy, pol)
		if err != nil {
			return err
		}
		if excluded {
			return nil
		}
		return validationf("passwords are enforced for link and mail shares")
	}

	if m.passwordPolicy != nil {
		if err := m.passwordPolicy(*s.Password); err != nil {
			return policyf(err.Error(), "share password rejected by password policy: %v", err)
		}
	}
	return nil
}

func (m *Manager) passwordEnforcementExcluded(ctx context.Context, uid string, pol *config.SharePolicy) (bool, error) {
	if len(pol.EnforcePasswordExcluded) == 0 || uid == "" {
		return false, nil
	}
	userGroups, err := m.groups.UserGroups(ctx, uid)
	if err != nil {
		return false, err
	}
	return intersects(userGroups, pol.EnforcePasswordExcluded), nil
}

// updatePasswordIfNeeded decides on update whether s carries a genuinely new
// password. Equality is decided by verifying the plaintext candidate against
// the stored hash, never by comparing hashes. When nothing changed the
// original hash is restored so the provider write keeps it intact. Reports
// whether the password changed.
func (m *Manager) updatePasswordIfNeeded(ctx context.Context, s, orig *models.Share, pol *config.SharePolicy) (bool, error) {
	changed := false
	switch {
	case s.Password == nil && orig.Password == nil:
	case s.Password == nil || orig.Password == nil:
		changed = true
	default:
		ok, _, err := m.hasher.Verify(*s.Password, *orig.Password)
		if err != nil {
			return false, err
		}
		changed = !ok
	}

	if !changed {
		s.Password = orig.Password
		return false, nil
	}

	if err := m.verifyPassword(ctx, s, pol); err != nil {
		return false, err
	}
	if s.Password != nil && *s.Password == "" {
		s.Password = nil
	}
	return true, nil
}
