package domain

// User identifies the logged-in account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the successful login response body.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
