// Package twin holds the digital twin's structural health state and turns a
// stream of anomaly results into decaying per-pillar health.
package twin

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

const (
	MaxHealth          = 100
	DefaultDamageScale = 12
)

// ErrUnknownComponent is returned when a pillar id is not part of the policy.
var ErrUnknownComponent = errors.New("unknown component")

// Component is a structural element and the share of the anomaly metric it
// receives.
type Component struct {
	ID     string
	Weight float64
}

// Policy decides how an anomaly metric turns into per-component damage.
type Policy struct {
	Components  []Component
	DamageScale float64
}

// ReciprocalPolicy weights the n-th component by 1/n, modelling structural
// coupling that falls off with distance from the sensor.
func ReciprocalPolicy(scale float64, ids ...string) Policy {
	p := Policy{DamageScale: scale, Components: make([]Component, len(ids))}
	for i, id := range ids {
		p.Components[i] = Component{ID: id, Weight: 1 / float64(i+1)}
	}
	return p
}

// DefaultPolicy is four pillars P1..P4 with reciprocal weights and scale 12.
func DefaultPolicy() Policy {
	return ReciprocalPolicy(DefaultDamageScale, "P1", "P2", "P3", "P4")
}

func (p Policy) Validate() error {
	if len(p.Components) == 0 {
		return fmt.Errorf("policy has no components")
	}
	if p.DamageScale < 0 || math.IsNaN(p.DamageScale) || math.IsInf(p.DamageScale, 0) {
		return fmt.Errorf("damage scale must be finite and >= 0, got %g", p.DamageScale)
	}
	seen := make(map[string]bool, len(p.Components))
	for _, c := range p.Components {
		if c.ID == "" {
			return fmt.Errorf("component with empty id")
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate component %q", c.ID)
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return fmt.Errorf("component %q has invalid weight", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

// Damage is the whole number of health points a component loses for metric,
// never more than MaxHealth.
func (p Policy) Damage(metric, weight float64) int {
	d := math.Abs(metric*weight) * p.DamageScale
	switch {
	case !(d >= 0):
		return 0
	case d >= MaxHealth:
		return MaxHealth
	}
	// absorb float error so e.g. 12 * (1/3) floors to 4
	return int(math.Floor(d + 1e-9))
}

// PillarState is the published health of one component.
type PillarState struct {
	Health int `json:"health"`
}

// State is an immutable snapshot of the twin. Seq increases with every
// published snapshot, so sinks can tell a stale state from a newer one.
type State struct {
	Seq           uint64                 `json:"seq"`
	OverallHealth int                    `json:"overall_health"`
	Pillars       map[string]PillarState `json:"pillars"`
	Model         *domain.AnomalyResult  `json:"model,omitempty"`
	Cycle         string                 `json:"cycle,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Twin owns the structural health state. Writes are serialised; readers get
// the last fully published snapshot and never observe a partial update.
type Twin struct {
	policy Policy

	mu     sync.Mutex
	health []int
	seq    uint64

	snapshot atomic.Pointer[State]
}

func New(policy Policy) (*Twin, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("twin policy: %w", err)
	}
	t := &Twin{
		policy: policy,
		health: make([]int, len(policy.Components)),
	}
	for i := range t.health {
		t.health[i] = MaxHealth
	}
	t.publishLocked(nil, "")
	return t, nil
}

// Apply folds one anomaly result into the state and returns the new
// snapshot. Degraded results carry no information and cause no damage.
func (t *Twin) Apply(result domain.AnomalyResult) State {
	return t.ApplyCycle(result, "")
}

// ApplyCycle is Apply with a cycle id attached to the published snapshot.
func (t *Twin) ApplyCycle(result domain.AnomalyResult, cycle string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	metric := result.AnomalyMetric()
	for i, c := range t.policy.Components {
		t.health[i] = max(0, t.health[i]-t.policy.Damage(metric, c.Weight))
	}
	res := result
	return t.publishLocked(&res, cycle)
}

// Repair restores health to a component, capped at MaxHealth. It is the only
// way health ever increases.
func (t *Twin) Repair(id string, amount int) (State, error) {
	if amount < 0 {
		return State{}, fmt.Errorf("repair amount must be >= 0, got %d", amount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, c := range t.policy.Components {
		if c.ID == id {
			t.health[i] = min(MaxHealth, t.health[i]+amount)
			return t.publishLocked(t.snapshot.Load().Model, ""), nil
		}
	}
	return State{}, fmt.Errorf("%w: %q", ErrUnknownComponent, id)
}

// Reset returns every component to full health.
func (t *Twin) Reset() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.health {
		t.health[i] = MaxHealth
	}
	return t.publishLocked(nil, "")
}

// Snapshot returns the latest published state.
func (t *Twin) Snapshot() State {
	return *t.snapshot.Load()
}

// Components lists the component ids in policy order.
func (t *Twin) Components() []string {
	ids := make([]string, len(t.policy.Components))
	for i, c := range t.policy.Components {
		ids[i] = c.ID
	}
	return ids
}

func (t *Twin) publishLocked(model *domain.AnomalyResult, cycle string) State {
	pillars := make(map[string]PillarState, len(t.health))
	total := 0
	for i, c := range t.policy.Components {
		pillars[c.ID] = PillarState{Health: t.health[i]}
		total += t.health[i]
	}
	t.seq++
	s := &State{
		Seq:           t.seq,
		OverallHealth: total / len(t.health),
		Pillars:       pillars,
		Model:         model,
		Cycle:         cycle,
		Timestamp:     time.Now().UTC(),
	}
	t.snapshot.Store(s)
	return *s
}
