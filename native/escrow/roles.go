package escrow

// Role tags the fixed stakeholders of the protocol. The buyer role is
// per-listing; the others are fixed at engine construction.
type Role uint8

const (
	RoleSeller Role = 1 << iota
	RoleInspector
	RoleLender
	RoleBuyer
)

// RoleSet is a bitmask over Role values.
type RoleSet uint8

// Has reports whether the set contains the given role.
func (s RoleSet) Has(r Role) bool { return uint8(s)&uint8(r) != 0 }

// Any reports whether the set intersects the required roles.
func (s RoleSet) Any(required RoleSet) bool { return uint8(s)&uint8(required) != 0 }

// Roles builds a RoleSet from individual roles.
func Roles(rs ...Role) RoleSet {
	var set RoleSet
	for _, r := range rs {
		set |= RoleSet(r)
	}
	return set
}

// rolesOf maps a caller to the roles it holds, relative to a listing. A nil
// listing resolves only the fixed engine roles.
func (e *Engine) rolesOf(l *Listing, caller [20]byte) RoleSet {
	var held RoleSet
	if caller == e.seller {
		held |= RoleSet(RoleSeller)
	}
	if caller == e.inspector {
		held |= RoleSet(RoleInspector)
	}
	if caller == e.lender {
		held |= RoleSet(RoleLender)
	}
	if l != nil && caller == l.Buyer {
		held |= RoleSet(RoleBuyer)
	}
	return held
}

// authorize is the single gate every mutator goes through: the caller must
// hold at least one of the required roles.
func (e *Engine) authorize(l *Listing, caller [20]byte, required RoleSet) error {
	if !e.rolesOf(l, caller).Any(required) {
		return ErrUnauthorized
	}
	return nil
}
