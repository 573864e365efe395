package share

import (
	"fmt"
	"time"

	"serwer-udostepnien/internal/config"
	"serwer-udostepnien/internal/models"
)

// expireRuleFor selects the policy class applicable to a share type.
// Remote shares have their own clock because the receiving server cannot
// be trusted to expire them.
func expireRuleFor(t models.ShareType, pol *config.SharePolicy) config.ExpireRule {
	switch t {
	case models.ShareTypeRemote, models.ShareTypeRemoteGroup:
		return pol.RemoteExpire
	case models.ShareTypeLink, models.ShareTypeEmail:
		return pol.LinkExpire
	default:
		return pol.InternalExpire
	}
}

// validateExpiration normalizes and checks s.ExpirationDate against rule.
// A provided date is stretched to the end of its day so a share expiring
// "today" stays valid until midnight. isNew controls whether the policy
// default is applied when no date was given.
func (m *Manager) validateExpiration(s *models.Share, rule config.ExpireRule, isNew bool) error {
	now := m.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var exp *time.Time
	if s.ExpirationDate != nil {
		d := s.ExpirationDate.In(now.Location())
		e := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, now.Location())
		if !e.After(today) {
			return validationf("expiration date is in the past")
		}
		exp = &e
	}

	if exp == nil && isNew && rule.DefaultEnabled {
		e := today.AddDate(0, 0, rule.Days).Add(-time.Second)
		exp = &e
	}

	if rule.Enforced {
		if exp == nil {
			return validationf("expiration date is enforced")
		}
		max := today.AddDate(0, 0, rule.Days).Add(24*time.Hour - time.Second)
		if exp.After(max) {
			return policyf(fmt.Sprintf("Cannot set expiration date more than %d days in the future", rule.Days),
				"expiration %s exceeds the enforced maximum of %d days", exp.Format(time.DateOnly), rule.Days)
		}
	}

	s.ExpirationDate = exp
	return nil
}
