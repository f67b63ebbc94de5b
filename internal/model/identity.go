package model

// Identity is the current authentication state of a session.
// The zero value is the anonymous identity.
type Identity struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Anonymous returns the anonymous identity.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated reports whether the identity is tied to a user.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// String returns a log-friendly representation of the identity.
func (i Identity) String() string {
	if !i.Authenticated() {
		return "anonymous"
	}
	return "user:" + i.UserID
}
