package identity

import "github.com/google/uuid"

// Identity is the resolved caller of a generation request: either a
// registered account or an anonymous visitor identified by a signed cookie
// token. The zero value is neither and reports false from both accessors.
type Identity struct {
	accountID uuid.UUID
	anonToken string
}

// ForAccount returns the identity of a registered account.
func ForAccount(id uuid.UUID) Identity {
	return Identity{accountID: id}
}

// ForAnonymous returns the identity of an anonymous visitor token.
func ForAnonymous(token string) Identity {
	return Identity{anonToken: token}
}

// IsAnonymous reports whether the identity is an anonymous visitor.
func (i Identity) IsAnonymous() bool {
	return i.anonToken != ""
}

// AccountID returns the account id and true when the identity is a
// registered account.
func (i Identity) AccountID() (uuid.UUID, bool) {
	if i.accountID == uuid.Nil {
		return uuid.Nil, false
	}
	return i.accountID, true
}

// AnonymousToken returns the visitor token and true when the identity is
// anonymous.
func (i Identity) AnonymousToken() (string, bool) {
	if i.anonToken == "" {
		return "", false
	}
	return i.anonToken, true
}

// String returns a stable key for logging and per-identity counters.
func (i Identity) String() string {
	if i.anonToken != "" {
		return "anon:" + i.anonToken
	}
	return "account:" + i.accountID.String()
}
