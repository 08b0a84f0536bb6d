package permission

// LoadState tracks whether a grant set has been resolved against the store.
// Evaluation over an unresolved set always denies; loading must never be
// mistaken for "all access".
type LoadState int

const (
	StateUnknown LoadState = iota
	StateLoaded
)

// GrantSet is an immutable snapshot of one identity's grants plus its role.
// All evaluation is synchronous and side-effect free once the set is built.
type GrantSet struct {
	State  LoadState
	Role   Role
	Pages  map[Page]bool
	Charts []ChartGrant
}

// EmptyGrantSet returns a deny-all set for the given role. It is the result
// of a failed or not-yet-finished store fetch (fail closed).
func EmptyGrantSet(role Role) GrantSet {
	return GrantSet{State: StateUnknown, Role: role}
}

// NewGrantSet builds a loaded grant set from store rows.
func NewGrantSet(role Role, pages []PageGrant, charts []ChartGrant) GrantSet {
	pageMap := make(map[Page]bool, len(pages))
	for _, g := range pages {
		pageMap[g.Page] = g.Allowed
	}
	return GrantSet{
		State:  StateLoaded,
		Role:   role,
		Pages:  pageMap,
		Charts: charts,
	}
}

// CanAccessPage decides page visibility. Admins are always allowed; for
// everyone else the single grant row for the page decides, and a missing
// row denies. Pages do not inherit from each other.
func (g GrantSet) CanAccessPage(page Page) bool {
	if g.Role == RoleAdmin {
		return true
	}
	if g.State != StateLoaded {
		return false
	}
	allowed, ok := g.Pages[page]
	if !ok {
		return false
	}
	return allowed
}

// CanViewChart decides chart visibility. Chart identifiers are globally
// unique; page, when non-empty, only narrows the match.
func (g GrantSet) CanViewChart(chart ChartType, page Page) bool {
	if g.Role == RoleAdmin {
		return true
	}
	if g.State != StateLoaded {
		return false
	}
	for _, c := range g.Charts {
		if c.Chart != chart {
			continue
		}
		if page != "" && c.Page != page {
			continue
		}
		return c.CanView
	}
	return false
}
