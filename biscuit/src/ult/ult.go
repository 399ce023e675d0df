// Package ult implements the cooperative user-level threading library: a
// 100-slot thread table, three pluggable scheduling policies, and a
// scheduling loop that treats slot 0 as the scheduler itself.
//
// The original context_switch(old, new) primitive is hand-written
// assembly: save callee-saved registers, return address, and stack
// pointer into old; restore the same from new; resume at new.ra. Nothing
// in stock Go lets a library swap stacks underneath a goroutine, so this
// package models the same handoff contract with goroutines parked on
// unbuffered channels: at most one goroutine ever runs at a time, the
// channel send/receive pair is the "save into old, restore from new" step,
// and resuming "at new.ra" is simply the parked goroutine returning from
// its channel receive. See DESIGN.md for the full discussion.
package ult

import (
	"fmt"

	"accnt"
	"defs"
	"obslog"
	"stats"
)

const capacity = 100

// State is a thread table slot's lifecycle state.
type State int

const (
	Free State = iota
	Runnable
	Yielded
)

/// String renders a State for logging.
func (s State) String() string {
	switch s {
	case Free:
		return "FREE"
	case Runnable:
		return "RUNNABLE"
	case Yielded:
		return "YIELD"
	default:
		return "?"
	}
}

// Entry is the function a created thread begins executing at, standing in
// for the original's (sp=stack, ra=entry, a0..a5=args) register setup.
type Entry func(args [6]uint64)

type eventKind int

const (
	evYield eventKind = iota
	evDestroy
)

type event struct {
	tid  int
	kind eventKind
}

type slot struct {
	state         State
	priority      int
	lastScheduled uint64
	resume        chan struct{}
	acct          accnt.Accnt_t
}

// Scheduler is a single thread table and its scheduling state. A package-
// level singleton (Default) mirrors the one process-wide table the spec
// calls for; tests construct their own Scheduler to run independent
// scenarios concurrently.
type Scheduler struct {
	table       [capacity]slot
	algorithm   defs.Algorithm
	current     int // 0 while the scheduler itself holds control
	lastRunning int // tid last given control, used as the round-robin cursor
	lastYielded int // 0 means none
	toScheduler chan event
}

// Default is the package-level thread table the rest of the kernel drives.
var Default Scheduler

// ErrTableFull describes a thread table with no free slot in 1..99. Create
// does not return it; it reports that case by returning false.
var ErrTableFull = fmt.Errorf("ult: thread table full")

// Init resets the table, installs algorithm as the active scheduling
// policy, and seats the scheduler in slot 0 as RUNNABLE.
func (s *Scheduler) Init(algorithm defs.Algorithm) {
	*s = Scheduler{algorithm: algorithm, toScheduler: make(chan event)}
	s.table[0] = slot{state: Runnable}
}

// Create scans slots 1..99 for the first FREE entry and spawns the
// goroutine that will run entry once scheduled. It reports false when the
// table is full.
func (s *Scheduler) Create(entry Entry, args [6]uint64, priority int) bool {
	for i := 1; i < capacity; i++ {
		if s.table[i].state == Free {
			s.table[i] = slot{
				state:         Runnable,
				priority:      priority,
				lastScheduled: stats.Tick(),
				resume:        make(chan struct{}),
			}
			tid := i
			go func() {
				<-s.table[tid].resume
				entry(args)
				s.finish(tid)
			}()
			return true
		}
	}
	obslog.ULT.WithField("capacity", capacity).Warn("thread table full")
	return false
}

// CurrentTID returns the tid of the thread presently holding control (0
// while the scheduler itself is running).
func (s *Scheduler) CurrentTID() int {
	return s.current
}

// Yield marks the calling thread YIELD, records it as the last-yielded
// thread, and hands control back to the scheduler. It blocks until the
// scheduler resumes this thread again.
func (s *Scheduler) Yield() {
	tid := s.current
	s.table[tid].state = Yielded
	s.lastYielded = tid
	s.toScheduler <- event{tid: tid, kind: evYield}
	<-s.table[tid].resume
}

// Destroy marks the calling thread FREE, clears its context, and hands
// control back to the scheduler for the last time; it never returns to
// its caller.
func (s *Scheduler) Destroy() {
	tid := s.current
	s.finish(tid)
	select {} // the original context switch never resumes a destroyed thread
}

// finish is the shared FREE-and-notify step used by both an explicit
// Destroy call and a thread whose entry function simply returns.
func (s *Scheduler) finish(tid int) {
	obslog.ULT.WithField("tid", tid).Debug("thread destroyed")
	s.table[tid].state = Free
	s.table[tid].resume = nil
	s.toScheduler <- event{tid: tid, kind: evDestroy}
}

// Schedule runs the scheduling loop and returns once no thread is
// RUNNABLE and no last-yielded thread is recorded. Only the most recently
// yielded thread is resumed by the fallback; other threads still in YIELD
// at that point are not resumed.
func (s *Scheduler) Schedule() {
	for {
		id := s.selectNext()
		if id == 0 {
			if s.lastYielded == 0 {
				return
			}
			id = s.lastYielded
		}
		if id == s.lastYielded {
			s.table[id].state = Runnable
			s.lastYielded = 0
		}

		s.current = id
		s.lastRunning = id
		s.table[id].lastScheduled = stats.Tick()
		start := s.table[id].acct.Now()

		s.table[id].resume <- struct{}{}
		ev := <-s.toScheduler

		s.table[id].acct.Utadd(s.table[id].acct.Now() - start)
		s.current = 0
		_ = ev
	}
}

// selectNext dispatches to the active scheduling policy.
func (s *Scheduler) selectNext() int {
	switch s.algorithm {
	case defs.Priority:
		return s.selectPriority()
	case defs.FCFS:
		return s.selectFCFS()
	default:
		return s.selectRoundRobin()
	}
}

// selectRoundRobin walks the table starting at lastRunning+1, skipping
// slot 0, and returns the first RUNNABLE slot found.
func (s *Scheduler) selectRoundRobin() int {
	for i := 1; i < capacity; i++ {
		id := (s.lastRunning + i) % capacity
		if id == 0 {
			continue
		}
		if s.table[id].state == Runnable {
			return id
		}
	}
	return 0
}

// selectPriority returns the RUNNABLE slot with the highest priority,
// ties broken by lowest id.
func (s *Scheduler) selectPriority() int {
	best := 0
	for i := 1; i < capacity; i++ {
		if s.table[i].state != Runnable {
			continue
		}
		if best == 0 || s.table[i].priority > s.table[best].priority {
			best = i
		}
	}
	return best
}

// selectFCFS returns the RUNNABLE slot with the smallest last-scheduled
// time, ties broken by lowest id.
func (s *Scheduler) selectFCFS() int {
	best := 0
	for i := 1; i < capacity; i++ {
		if s.table[i].state != Runnable {
			continue
		}
		if best == 0 || s.table[i].lastScheduled < s.table[best].lastScheduled {
			best = i
		}
	}
	return best
}
