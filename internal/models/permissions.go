package models

// Permissions is the bitmask carried by every share.
type Permissions int

const (
	PermissionRead   Permissions = 1
	PermissionUpdate Permissions = 2
	PermissionCreate Permissions = 4
	PermissionDelete Permissions = 8
	PermissionShare  Permissions = 16

	PermissionAll Permissions = 31
)

func (p Permissions) Has(other Permissions) bool {
	return p&other == other
}

// SubsetOf reports whether p grants nothing beyond other.
func (p Permissions) SubsetOf(other Permissions) bool {
	return p&^other == 0
}

func (p Permissions) Valid() bool {
	return p >= 0 && p <= PermissionAll
}
