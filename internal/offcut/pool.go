package offcut

import (
	"errors"
	"fmt"
	"sync"

	"github.com/piwi3910/cutplan/internal/model"
)

var (
	ErrNotFound          = errors.New("offcut not found")
	ErrExists            = errors.New("offcut already exists")
	ErrNotAvailable      = errors.New("offcut not available")
	ErrInvalidTransition = errors.New("invalid offcut state transition")
)

// Pool is an in-memory offcut stock.
type Pool struct {
	mu      sync.RWMutex
	offcuts map[string]*model.ReusableOffcut
	order   []string
}

func NewPool() *Pool {
	return &Pool{offcuts: make(map[string]*model.ReusableOffcut)}
}

// Add stores new offcuts. An empty state becomes available.
func (p *Pool) Add(offcuts ...model.ReusableOffcut) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, o := range offcuts {
		if _, ok := p.offcuts[o.ID]; ok {
			return fmt.Errorf("%w: %s", ErrExists, o.ID)
		}
	}
	for _, o := range offcuts {
		if o.State == "" {
			o.State = model.OffcutAvailable
		}
		p.offcuts[o.ID] = &o
		p.order = append(p.order, o.ID)
	}
	return nil
}

func (p *Pool) Get(id string) (model.ReusableOffcut, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	o, ok := p.offcuts[id]
	if !ok {
		return model.ReusableOffcut{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *o, nil
}

// List returns the offcuts matching c in consumption order.
func (p *Pool) List(c Criteria) []model.ReusableOffcut {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []model.ReusableOffcut
	for _, id := range p.order {
		if o := p.offcuts[id]; c.Matches(*o) {
			out = append(out, *o)
		}
	}
	SortForConsumption(out)
	return out
}

// Reserve moves every listed offcut to reserved for owner. Either all are
// reserved or none is.
func (p *Pool) Reserve(ids []string, owner string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		o, ok := p.offcuts[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if !o.State.Allocatable() {
			return fmt.Errorf("%w: %s is %s", ErrNotAvailable, id, o.State)
		}
	}
	for _, id := range ids {
		o := p.offcuts[id]
		o.State = model.OffcutReserved
		o.ReservedBy = owner
	}
	return nil
}

// ReserveMatching reserves every allocatable offcut matching c and returns them
// in consumption order.
func (p *Pool) ReserveMatching(c Criteria, owner string) []model.ReusableOffcut {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []model.ReusableOffcut
	for _, id := range p.order {
		o := p.offcuts[id]
		if !o.State.Allocatable() || !c.Matches(*o) {
			continue
		}
		o.State = model.OffcutReserved
		o.ReservedBy = owner
		out = append(out, *o)
	}
	SortForConsumption(out)
	return out
}

func (p *Pool) MarkUsed(id string) error {
	return p.transition(id, model.OffcutUsed)
}

// Release returns a reserved offcut to stock.
func (p *Pool) Release(id string) error {
	return p.transition(id, model.OffcutReleased)
}

func (p *Pool) Discard(id string) error {
	return p.transition(id, model.OffcutDiscarded)
}

func (p *Pool) transition(id string, next model.OffcutState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.offcuts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !o.State.CanTransition(next) {
		return fmt.Errorf("%w: %s from %s to %s", ErrInvalidTransition, id, o.State, next)
	}
	o.State = next
	if next != model.OffcutReserved && next != model.OffcutUsed {
		o.ReservedBy = ""
	}
	return nil
}

// Len returns the number of offcuts in the pool, whatever their state.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.offcuts)
}
