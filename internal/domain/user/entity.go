package user

// User represents a user entity in the system.
type User struct {
	ID    int64  // ID is assigned by the store and never changes
	Name  string // Name is the display name of the user
	Email string // Email is unique across all users
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Name  *string
	Email *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil
}

// Apply returns a copy of u with the patch applied.
func (p Patch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	return u
}
