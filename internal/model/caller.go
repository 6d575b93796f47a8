package model

// Caller is the resolved principal behind an authenticated request.
//
// It is a closed set: RegularUser or AdminUser. Stores switch on the concrete
// type to pick the ownership scope instead of comparing magic ids.
//
//	switch c := caller.(type) {
//	case model.RegularUser: // WHERE user_id = c.ID
//	case model.AdminUser:   // no owner filter
//	}
type Caller interface {
	// Name is the username the session was issued to.
	Name() string
	isCaller()
}

// RegularUser is a caller backed by a row in the users table.
type RegularUser struct {
	ID       int64
	Username string
}

func (u RegularUser) Name() string { return u.Username }
func (RegularUser) isCaller()      {}

// AdminUser is the legacy pseudo-identity configured through the environment.
// It has no database row and is not filtered by owner: it sees and mutates
// every category and note. Rows it creates are ownerless, and its
// delete-all only clears ownerless categories.
type AdminUser struct {
	Username string
}

func (a AdminUser) Name() string { return a.Username }
func (AdminUser) isCaller()      {}
