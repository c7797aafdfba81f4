// Package limits holds the two motion hooks a move passes through before it
// reaches the planner: an admissibility check used for jogs and a target
// transform used for programmed moves. Each hook is an ordered chain; a
// handler either answers on its own or passes the request to the next one.
package limits

import (
	"sync"

	"atcguard/standalone"
)

// CheckFunc decides whether a move from start to target may begin
type CheckFunc func(start, target standalone.Position) bool

// ClipFunc may rewrite target in place before the move is planned
type ClipFunc func(target *standalone.Position, current standalone.Position)

// Checker is one admissibility handler. It returns false to veto or
// delegates to next.
type Checker interface {
	CheckTravel(start, target standalone.Position, next CheckFunc) bool
}

// Clipper is one target transform handler. It rewrites target or delegates
// to next.
type Clipper interface {
	ApplyTravel(target *standalone.Position, current standalone.Position, next ClipFunc)
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(start, target standalone.Position, next CheckFunc) bool

func (f CheckerFunc) CheckTravel(start, target standalone.Position, next CheckFunc) bool {
	return f(start, target, next)
}

// ClipperFunc adapts a function to Clipper
type ClipperFunc func(target *standalone.Position, current standalone.Position, next ClipFunc)

func (f ClipperFunc) ApplyTravel(target *standalone.Position, current standalone.Position, next ClipFunc) {
	f(target, current, next)
}

// CheckChain runs Checkers front to back. The end of the chain admits the move.
type CheckChain struct {
	mu       sync.RWMutex
	handlers []Checker
}

// Push installs h in front of every handler already in the chain, the way a
// plugin hooks the pointer and keeps the previous one as its fallback
func (c *CheckChain) Push(h Checker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append([]Checker{h}, c.handlers...)
}

// Len returns the number of installed handlers
func (c *CheckChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// Check runs the chain for one move
func (c *CheckChain) Check(start, target standalone.Position) bool {
	c.mu.RLock()
	handlers := c.handlers
	c.mu.RUnlock()
	return checkAt(handlers, 0)(start, target)
}

func checkAt(handlers []Checker, i int) CheckFunc {
	if i >= len(handlers) {
		return func(standalone.Position, standalone.Position) bool { return true }
	}
	return func(start, target standalone.Position) bool {
		return handlers[i].CheckTravel(start, target, checkAt(handlers, i+1))
	}
}

// ClipChain runs Clippers front to back. The end of the chain leaves the
// target unchanged.
type ClipChain struct {
	mu       sync.RWMutex
	handlers []Clipper
}

// Push installs h in front of every handler already in the chain
func (c *ClipChain) Push(h Clipper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append([]Clipper{h}, c.handlers...)
}

// Len returns the number of installed handlers
func (c *ClipChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// Apply runs the chain for one move
func (c *ClipChain) Apply(target *standalone.Position, current standalone.Position) {
	c.mu.RLock()
	handlers := c.handlers
	c.mu.RUnlock()
	clipAt(handlers, 0)(target, current)
}

func clipAt(handlers []Clipper, i int) ClipFunc {
	if i >= len(handlers) {
		return func(*standalone.Position, standalone.Position) {}
	}
	return func(target *standalone.Position, current standalone.Position) {
		handlers[i].ApplyTravel(target, current, clipAt(handlers, i+1))
	}
}
