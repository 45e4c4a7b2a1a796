// Package claims supplies the role and permission claims embedded in
// access tokens.
package claims

// Claim is a single typed claim value.
type Claim struct {
	Type  string
	Value string
}

// Well-known claim types.
const (
	TypeRole       = "role"
	TypePermission = "permission"
)

// Provider returns the claims to embed for a given user.
// Identity management behind this contract is out of scope; the trust
// engine only consumes the resulting claim list.
type Provider interface {
	ClaimsForUser(userID string) ([]Claim, error)
}

// Static serves claims from a fixed per-user map. Used by tests and by
// deployments that configure role assignments statically.
type Static struct {
	Users map[string][]Claim
}

var _ Provider = Static{}

func (s Static) ClaimsForUser(userID string) ([]Claim, error) {
	return s.Users[userID], nil
}
