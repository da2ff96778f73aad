package entity

import (
	"fmt"
	"stepgen/pkg/apperr"
	"time"

	"github.com/google/uuid"
)

// Registry is the crawl's working memory: an append-only ScreenID ->
// CapturedScreen map. After Seal it only serves reads, which keeps the
// capture phase and the synthesis phase apart.
type Registry struct {
	screens map[ScreenID]CapturedScreen
	order   []ScreenID
	sealed  bool
}

func NewRegistry() *Registry {
	return &Registry{
		screens: make(map[ScreenID]CapturedScreen),
	}
}

func (r *Registry) Add(screen CapturedScreen) error {
	const op = "Registry.Add"

	if r.sealed {
		return apperr.Wrap(op, apperr.CodeRegistrySealed, fmt.Errorf("registry sealed, cannot add %q", screen.ScreenID), map[string]any{
			apperr.MetaScreen: string(screen.ScreenID),
		})
	}

	if _, exists := r.screens[screen.ScreenID]; exists {
		return apperr.Wrap(op, apperr.CodeDuplicateScreen, fmt.Errorf("screen %q already captured", screen.ScreenID), map[string]any{
			apperr.MetaScreen: string(screen.ScreenID),
		})
	}

	r.screens[screen.ScreenID] = screen
	r.order = append(r.order, screen.ScreenID)

	return nil
}

func (r *Registry) Seal() {
	r.sealed = true
}

func (r *Registry) Sealed() bool {
	return r.sealed
}

func (r *Registry) Screen(id ScreenID) (CapturedScreen, bool) {
	if r == nil {
		return CapturedScreen{}, false
	}

	screen, ok := r.screens[id]

	return screen, ok
}

// Element looks up role on screen id. A missing screen or role yields the
// zero (not found) descriptor.
func (r *Registry) Element(id ScreenID, role Role) ElementDescriptor {
	screen, ok := r.Screen(id)
	if !ok {
		return ElementDescriptor{}
	}

	return screen.Element(role)
}

// Screens returns the captured screen IDs in insertion order.
func (r *Registry) Screens() []ScreenID {
	if r == nil {
		return nil
	}

	out := make([]ScreenID, len(r.order))
	copy(out, r.order)

	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.order)
}

// Snapshot is a serializable copy of a registry, used for capture dumps.
type Snapshot struct {
	RunID      string           `yaml:"run_id"`
	Feature    string           `yaml:"feature"`
	CapturedAt time.Time        `yaml:"captured_at"`
	Screens    []CapturedScreen `yaml:"screens"`
}

func (r *Registry) Snapshot(runID uuid.UUID, feature string, at time.Time) Snapshot {
	snap := Snapshot{
		RunID:      runID.String(),
		Feature:    feature,
		CapturedAt: at,
	}

	for _, id := range r.Screens() {
		snap.Screens = append(snap.Screens, r.screens[id])
	}

	return snap
}
