package model

// Credentials is the persisted result of a completed setup handshake.
type Credentials struct {
	Email      string `json:"email"`
	BackendURL string `json:"backend_url"`
	Token      string `json:"token"`
}

// IsComplete reports whether the credentials can be used to reach the backend.
func (c *Credentials) IsComplete() bool {
	return c != nil && c.BackendURL != "" && c.Token != ""
}
