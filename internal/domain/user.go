package domain

// User is the identity record returned by the backend.
// Password is only populated for registration payloads.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// Sanitized returns a copy safe to persist or log.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}
