// Package energy provides the shared energy container backing the virtual
// power plant. Vehicles contribute charged energy to the pool and draw it back
// out when driving; the charging controller draws committed capacity at
// settlement time.
package energy

import (
	"fmt"

	"github.com/xzhou2018/FleetSim/core/logger"
	"github.com/xzhou2018/FleetSim/core/sim"
)

type waiter struct {
	proc   *sim.Proc
	amount float64
}

// Pool is a bounded, non-negative quantity of stored energy in kWh. Put and
// Get are atomic with respect to other pending operations and block the
// calling process until the request can be satisfied in full. Waiters on each
// side are served strictly in arrival order: a queued request is never
// overtaken by a later, smaller one.
type Pool struct {
	env      *sim.Environment
	capacity float64
	level    float64
	putters  []waiter
	getters  []waiter
	totalPut float64
	totalGet float64
	log      logger.Logger
}

// NewPool creates a pool with the given capacity in kWh and an initial level
// of zero.
func NewPool(env *sim.Environment, capacity float64, log logger.Logger) (*Pool, error) {
	if env == nil {
		return nil, fmt.Errorf("energy: nil environment")
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("energy: capacity must be positive, got %v", capacity)
	}
	return &Pool{env: env, capacity: capacity, log: log}, nil
}

// Level returns the current stored energy in kWh. It never blocks.
func (p *Pool) Level() float64 { return p.level }

// Capacity returns the fixed capacity in kWh. It never blocks.
func (p *Pool) Capacity() float64 { return p.capacity }

// Free returns the remaining headroom in kWh.
func (p *Pool) Free() float64 { return p.capacity - p.level }

// TotalPut returns the cumulative energy ever added, in kWh.
func (p *Pool) TotalPut() float64 { return p.totalPut }

// TotalGet returns the cumulative energy ever removed, in kWh.
func (p *Pool) TotalGet() float64 { return p.totalGet }

// Put adds amount kWh to the pool, suspending proc until level+amount fits
// within capacity. An amount exceeding the pool capacity can never be
// satisfied and is rejected immediately.
func (p *Pool) Put(proc *sim.Proc, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("energy: negative put amount %v", amount)
	}
	if amount > p.capacity {
		return fmt.Errorf("energy: put of %v kWh exceeds pool capacity %v kWh", amount, p.capacity)
	}
	if amount == 0 {
		return nil
	}
	if len(p.putters) == 0 && p.level+amount <= p.capacity {
		p.applyPut(amount)
		p.release()
		return nil
	}
	p.putters = append(p.putters, waiter{proc: proc, amount: amount})
	if p.log != nil {
		p.log.Debugf("%s waits to put %.2f kWh (level %.2f/%.2f)", proc.Name(), amount, p.level, p.capacity)
	}
	if err := proc.Suspend(); err != nil {
		p.dropPutter(proc)
		return err
	}
	// The amount was applied by release before the wakeup.
	return nil
}

// Get removes amount kWh from the pool, suspending proc until the level covers
// the full amount.
func (p *Pool) Get(proc *sim.Proc, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("energy: negative get amount %v", amount)
	}
	if amount > p.capacity {
		return fmt.Errorf("energy: get of %v kWh exceeds pool capacity %v kWh", amount, p.capacity)
	}
	if amount == 0 {
		return nil
	}
	if len(p.getters) == 0 && p.level >= amount {
		p.applyGet(amount)
		p.release()
		return nil
	}
	p.getters = append(p.getters, waiter{proc: proc, amount: amount})
	if p.log != nil {
		p.log.Debugf("%s waits to get %.2f kWh (level %.2f/%.2f)", proc.Name(), amount, p.level, p.capacity)
	}
	if err := proc.Suspend(); err != nil {
		p.dropGetter(proc)
		return err
	}
	return nil
}

func (p *Pool) applyPut(amount float64) {
	p.level += amount
	p.totalPut += amount
}

func (p *Pool) applyGet(amount float64) {
	p.level -= amount
	p.totalGet += amount
}

// release serves queued waiters while the head of either queue can be
// satisfied. The waiter's amount is applied here so the level is updated
// atomically in request order; the woken process observes a completed
// operation when its Suspend returns.
func (p *Pool) release() {
	for {
		progress := false
		if len(p.putters) > 0 && p.level+p.putters[0].amount <= p.capacity {
			w := p.putters[0]
			p.putters = p.putters[1:]
			p.applyPut(w.amount)
			p.env.Wake(w.proc)
			progress = true
		}
		if len(p.getters) > 0 && p.level >= p.getters[0].amount {
			w := p.getters[0]
			p.getters = p.getters[1:]
			p.applyGet(w.amount)
			p.env.Wake(w.proc)
			progress = true
		}
		if !progress {
			return
		}
	}
}

func (p *Pool) dropPutter(proc *sim.Proc) {
	for i, w := range p.putters {
		if w.proc == proc {
			p.putters = append(p.putters[:i], p.putters[i+1:]...)
			return
		}
	}
}

func (p *Pool) dropGetter(proc *sim.Proc) {
	for i, w := range p.getters {
		if w.proc == proc {
			p.getters = append(p.getters[:i], p.getters[i+1:]...)
			return
		}
	}
}
