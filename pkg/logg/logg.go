package logg

// Field keys shared by every component logger.
const (
	Layer     = "layer"
	Operation = "operation"
	RunID     = "run_id"
	URL       = "url"
	Selector  = "selector"
	Screen    = "screen"
	Role      = "role"
	Feature   = "feature"
	Scenario  = "scenario"
	Step      = "step"
	Pattern   = "pattern"
	Path      = "path"
)
