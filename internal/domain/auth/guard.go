package auth

// Requirement describes what a route demands of the current session.
// Both capabilities are optional and compose.
type Requirement struct {
	MinRole          Role
	RequireSuperuser bool
}

// Decision is the outcome of evaluating a Requirement against a Snapshot.
type Decision int

const (
	// DecisionPending means the session is still loading; disclose nothing.
	DecisionPending Decision = iota
	// DecisionRedirectLogin sends unauthenticated callers to the login route.
	DecisionRedirectLogin
	// DecisionRedirectLanding sends under-privileged callers to the landing route.
	DecisionRedirectLanding
	// DecisionAllow renders the protected content.
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionRedirectLanding:
		return "redirect_landing"
	case DecisionAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decide evaluates req against s. Order matters: loading, then authentication,
// then the superuser flag, then role rank.
func Decide(s Snapshot, req Requirement) Decision {
	if s.Loading {
		return DecisionPending
	}
	if s.Identity == nil {
		return DecisionRedirectLogin
	}
	if req.RequireSuperuser && !s.Identity.IsSuperuser {
		return DecisionRedirectLanding
	}
	if req.MinRole != "" && s.Identity.Role.Rank() < req.MinRole.Rank() {
		return DecisionRedirectLanding
	}
	return DecisionAllow
}
