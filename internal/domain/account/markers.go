package account

import "strconv"

// Marker attribute names, without the identity provider's custom-attribute prefix.
const (
	MarkerPrimaryUserID  = "primary_user_id"
	MarkerAuthProvider   = "auth_provider"
	MarkerLinkedAccount  = "linked_account"
	MarkerPrimaryAccount = "primary_account"
)

// SessionMarkers tell the application which account a session belongs to
// and whether the session came in through a linked method.
type SessionMarkers struct {
	PrimaryUserID  string
	AuthProvider   Provider
	LinkedAccount  bool
	PrimaryAccount bool
}

// MarkersFor projects the markers for a session authenticated with p against acct.
func MarkersFor(acct Account, p Provider) SessionMarkers {
	primary := acct.IsPrimary(p)
	return SessionMarkers{
		PrimaryUserID:  acct.ID,
		AuthProvider:   p,
		LinkedAccount:  !primary,
		PrimaryAccount: primary,
	}
}

// IsZero reports whether no account has been resolved into the markers.
func (m SessionMarkers) IsZero() bool { return m.PrimaryUserID == "" }

// Attributes renders the markers as string attributes, each name prefixed with prefix
// (for example "custom:").
func (m SessionMarkers) Attributes(prefix string) map[string]string {
	if m.IsZero() {
		return map[string]string{}
	}
	return map[string]string{
		prefix + MarkerPrimaryUserID:  m.PrimaryUserID,
		prefix + MarkerAuthProvider:   string(m.AuthProvider),
		prefix + MarkerLinkedAccount:  strconv.FormatBool(m.LinkedAccount),
		prefix + MarkerPrimaryAccount: strconv.FormatBool(m.PrimaryAccount),
	}
}
