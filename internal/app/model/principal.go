package model

// StaffPrincipal is an authenticated staff user acting inside one business.
// The tenant is resolved once at request start.
type StaffPrincipal struct {
	User       *User
	BusinessID uint // zero until the request is bound to a business
}

// UserID is shorthand for the staff user's id.
func (p StaffPrincipal) UserID() uint {
	if p.User == nil {
		return 0
	}
	return p.User.ID
}

// CustomerPrincipal is an authenticated customer of one business, resolved
// from the customer token's composite key.
type CustomerPrincipal struct {
	CustomerID uint
	BusinessID uint
}
