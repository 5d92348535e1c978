package model

// Accounts live in the external account service.  This service only sees
// the identity carried by a verified access token.

// Role names as they appear in the token's "role" claim.
const (
	RoleParishioner = "PARISHIONER"
	RoleStaff       = "STAFF"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID   string // token subject
	Role string
}

// IsStaff reports whether p may review and resolve bookings.
func (p Principal) IsStaff() bool { return p.Role == RoleStaff }

// CanView reports whether p may read b: staff see everything, parishioners
// only their own bookings.
func (p Principal) CanView(b *Booking) bool {
	return p.IsStaff() || (p.ID != "" && p.ID == b.RequesterID)
}
