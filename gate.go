package authsync

// Decision is what a page should show for a given auth state.
type Decision int

const (
	DecisionLoading Decision = iota
	DecisionLoginPrompt
	DecisionRender
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionLoginPrompt:
		return "login"
	case DecisionRender:
		return "render"
	}
	return "unknown"
}

// Gate decides between loading, login prompt and the protected content.
type Gate struct {
	RequireAuth bool
}

// Decide maps state to a Decision. Loading always wins.
func (g Gate) Decide(state AuthViewState) Decision {
	if state.IsLoading {
		return DecisionLoading
	}
	if !g.RequireAuth || state.IsAuthenticated {
		return DecisionRender
	}
	return DecisionLoginPrompt
}
