package cache

// Keys builds the two key shapes under which a session lookup is cached.
type Keys struct {
	TokenPrefix string // e.g. "session_cache:"
	IDPrefix    string // e.g. "session:"
}

// DefaultKeys mirrors the configuration defaults.
var DefaultKeys = Keys{TokenPrefix: "session_cache:", IDPrefix: "session:"}

// Token returns the key for a session token.
func (k Keys) Token(token string) string {
	return k.TokenPrefix + token
}

// ID returns the key for a session id.
func (k Keys) ID(sessionID string) string {
	return k.IDPrefix + sessionID
}

// both returns the non-empty keys for token and sessionID.
func (k Keys) both(token, sessionID string) []string {
	keys := make([]string, 0, 2)
	if token != "" {
		keys = append(keys, k.Token(token))
	}
	if sessionID != "" {
		keys = append(keys, k.ID(sessionID))
	}
	return keys
}
