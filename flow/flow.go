// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package flow implements write-flow admission control: a credit pool
// that gates how many pages the dispatcher may admit before it must
// stall for a foreground garbage-collection pass to replenish it.
package flow

// Controller tracks a credit balance and the amount the next Refill
// grants. Every accepted page write debits one credit; once the pool
// runs dry the caller is expected to run foreground GC and then call
// Refill, which adds back whatever SetRefillAmount last set -- normally
// the invalid-page count of the line that GC pass just cleaned.
type Controller struct {
	credits         int
	creditsToRefill int
}

// New builds a Controller starting with initialCredits available, also
// used as the refill amount until SetRefillAmount is called for the
// first time.
func New(initialCredits int) *Controller {
	return &Controller{credits: initialCredits, creditsToRefill: initialCredits}
}

// CanAdmit reports whether there is a credit available for one more page
// write, without consuming it.
func (c *Controller) CanAdmit() bool { return c.credits > 0 }

// Admit consumes one credit. Callers must check CanAdmit first; Admit
// panics on an empty pool because the design treats running out of
// credits as a scheduling bug, not a recoverable condition -- the
// caller is supposed to run foreground GC and Refill before this
// happens.
func (c *Controller) Admit() {
	if c.credits <= 0 {
		panic("flow: admitted a write with no credit available")
	}
	c.credits--
}

// SetRefillAmount sets how many credits the next Refill call grants.
func (c *Controller) SetRefillAmount(k int) {
	c.creditsToRefill = k
}

// Refill adds creditsToRefill credits to the pool.
func (c *Controller) Refill() {
	c.credits += c.creditsToRefill
}

// Available returns the current credit balance.
func (c *Controller) Available() int { return c.credits }
