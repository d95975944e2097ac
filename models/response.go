package models

// Envelope is the response shape every endpoint answers with:
// {success, data?, count?, error?}. The client depends on it.
type Envelope struct {
	Success     bool     `json:"success"`
	Count       *int     `json:"count,omitempty"`
	Data        any      `json:"data,omitempty"`
	Error       string   `json:"error,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Message     string   `json:"message,omitempty"`
	Token       string   `json:"token,omitempty"`
	User        *User    `json:"user,omitempty"`
	Requires2FA bool     `json:"requires_2fa,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
