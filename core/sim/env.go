package sim

import (
	"container/heap"
	"errors"
	"time"

	"github.com/xzhou2018/FleetSim/core/logger"
)

// ErrStopped is returned from suspension points once the environment has been
// shut down. Process functions are expected to propagate it and return.
var ErrStopped = errors.New("sim: environment stopped")

// ProcFunc is the body of a simulated process. It runs cooperatively: every
// call to Sleep, SleepUntil or Suspend hands control back to the event loop.
type ProcFunc func(p *Proc) error

type event struct {
	at   time.Time
	seq  uint64
	proc *Proc
}

// eventQueue orders events by timestamp, then by insertion order so that
// events scheduled for the same instant fire in FIFO order.
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}
func (q eventQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)        { *q = append(*q, x.(*event)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// Environment owns the virtual clock and the event queue. It is not safe for
// concurrent use from outside its processes: all interaction after Run starts
// must happen from within a running process.
type Environment struct {
	now     time.Time
	queue   eventQueue
	seq     uint64
	yield   chan struct{}
	procs   []*Proc
	stopped bool
	log     logger.Logger
}

// NewEnvironment creates an environment whose clock starts at start.
func NewEnvironment(start time.Time, log logger.Logger) *Environment {
	if log == nil {
		log = nopLogger{}
	}
	return &Environment{
		now:   start,
		yield: make(chan struct{}),
		log:   log,
	}
}

// Now returns the current simulated time.
func (env *Environment) Now() time.Time { return env.now }

// Stopped reports whether the environment has shut down.
func (env *Environment) Stopped() bool { return env.stopped }

// Process registers fn as a new process. The process is scheduled to start at
// the current simulated time and begins running once the event loop reaches it.
func (env *Environment) Process(name string, fn ProcFunc) *Proc {
	p := &Proc{env: env, name: name, resume: make(chan struct{})}
	env.procs = append(env.procs, p)
	env.schedule(p, env.now)
	go func() {
		<-p.resume
		if !env.stopped {
			if err := fn(p); err != nil && !errors.Is(err, ErrStopped) {
				env.log.Errorf("process %s: %v", name, err)
			}
		}
		env.remove(p)
		env.yield <- struct{}{}
	}()
	return p
}

// Wake schedules p to resume at the current simulated time. It is used by
// resources to release a suspended waiter; the waiter runs after the calling
// process next yields, in FIFO order with anything else scheduled for now.
func (env *Environment) Wake(p *Proc) {
	env.schedule(p, env.now)
}

func (env *Environment) schedule(p *Proc, at time.Time) {
	env.seq++
	heap.Push(&env.queue, &event{at: at, seq: env.seq, proc: p})
}

func (env *Environment) remove(p *Proc) {
	for i, q := range env.procs {
		if q == p {
			env.procs = append(env.procs[:i], env.procs[i+1:]...)
			return
		}
	}
}

// Run drains the event queue, advancing the clock event by event, until the
// queue is empty or the next event lies beyond the until horizon. A zero until
// means no horizon. On return all remaining processes have been shut down.
func (env *Environment) Run(until time.Time) {
	for env.queue.Len() > 0 {
		next := env.queue[0]
		if !until.IsZero() && next.at.After(until) {
			break
		}
		heap.Pop(&env.queue)
		env.now = next.at
		next.proc.resume <- struct{}{}
		<-env.yield
	}
	if !until.IsZero() && until.After(env.now) {
		env.now = until
	}
	env.shutdown()
}

// shutdown resumes every remaining process so its suspension point returns
// ErrStopped and the goroutine exits. Processes that ignore ErrStopped and
// park again are resumed until they return.
func (env *Environment) shutdown() {
	env.stopped = true
	for len(env.procs) > 0 {
		p := env.procs[0]
		p.resume <- struct{}{}
		<-env.yield
	}
}

// Proc is the handle a process uses to interact with the clock. A Proc must
// only be used from its own ProcFunc.
type Proc struct {
	env    *Environment
	name   string
	resume chan struct{}
}

// Name returns the name the process was registered under.
func (p *Proc) Name() string { return p.name }

// Env returns the owning environment.
func (p *Proc) Env() *Environment { return p.env }

// Sleep suspends the process for d of simulated time.
func (p *Proc) Sleep(d time.Duration) error {
	if p.env.stopped {
		return ErrStopped
	}
	if d < 0 {
		d = 0
	}
	p.env.schedule(p, p.env.now.Add(d))
	return p.park()
}

// SleepUntil suspends the process until the clock reaches t. A time at or
// before the current instant yields for one scheduling round.
func (p *Proc) SleepUntil(t time.Time) error {
	if p.env.stopped {
		return ErrStopped
	}
	if t.Before(p.env.now) {
		t = p.env.now
	}
	p.env.schedule(p, t)
	return p.park()
}

// Suspend parks the process with no scheduled wakeup. The caller must have
// arranged for another process to release it via Environment.Wake, typically
// by enqueueing itself on a resource's wait queue first.
func (p *Proc) Suspend() error {
	if p.env.stopped {
		return ErrStopped
	}
	return p.park()
}

func (p *Proc) park() error {
	p.env.yield <- struct{}{}
	<-p.resume
	if p.env.stopped {
		return ErrStopped
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
