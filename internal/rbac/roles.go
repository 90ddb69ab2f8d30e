package rbac

// Role is a closed set of caller capabilities. Parsing the wire string into a
// tagged value once, at the auth boundary, keeps the disclosure gate from ever
// comparing free-form strings (a typo there would silently weaken the gate).
type Role int

const (
	// RoleUnknown is any unrecognized or absent role claim. It grants nothing.
	RoleUnknown Role = iota
	// RoleViewer may read manifests and redacted images.
	RoleViewer
	// RoleReviewer may additionally request region decryption.
	RoleReviewer
	// RoleAdmin may additionally delete images.
	RoleAdmin
)

// Wire names. Keep these stable; they are part of the token contract.
const (
	roleViewerName   = "viewer"
	roleReviewerName = "reviewer"
	roleAdminName    = "admin"
)

// Parse maps a role claim string to a Role. Unknown strings map to
// RoleUnknown, never to a privileged role.
func Parse(s string) Role {
	switch s {
	case roleViewerName:
		return RoleViewer
	case roleReviewerName:
		return RoleReviewer
	case roleAdminName:
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleViewer:
		return roleViewerName
	case RoleReviewer:
		return roleReviewerName
	case RoleAdmin:
		return roleAdminName
	default:
		return "unknown"
	}
}

// CanDisclose reports whether the role passes the single disclosure gate.
// This is deliberately the only privilege check around decryption; no
// per-region policy exists.
func (r Role) CanDisclose() bool { return r == RoleReviewer }

// CanIngest reports whether the role may submit images for protection.
func (r Role) CanIngest() bool { return r == RoleReviewer || r == RoleAdmin }

// CanDelete reports whether the role may cascade-delete an image.
func (r Role) CanDelete() bool { return r == RoleAdmin }

// CanView reports whether the role may read manifests and redacted bytes.
func (r Role) CanView() bool { return r != RoleUnknown }
