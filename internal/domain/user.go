package domain

// User is the backend's admin user record, cached alongside the session
// so a gateway restart does not require a fresh profile fetch.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Image    string `json:"image,omitempty"`
}
