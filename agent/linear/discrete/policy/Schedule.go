package policy

import (
	"fmt"
	"math"
)

// Schedule determines how ε evolves from tick to tick
type Schedule interface {
	// Initial returns the starting value of ε
	Initial() float64

	// Next returns ε for the next tick
	Next(epsilon float64) float64

	// Floor returns the smallest value of ε the schedule can produce
	Floor() float64

	Validate() error
}

// Decaying implements the multiplicative schedule
//
//	ε' = max(End, ε * Decay)
//
// which is monotonically non-increasing and never drops below End
type Decaying struct {
	Start float64
	End   float64
	Decay float64
}

// Initial implements the Schedule interface
func (d Decaying) Initial() float64 {
	return d.Start
}

// Next implements the Schedule interface
func (d Decaying) Next(epsilon float64) float64 {
	return math.Max(d.End, epsilon*d.Decay)
}

// Floor implements the Schedule interface
func (d Decaying) Floor() float64 {
	return d.End
}

// Validate ensures 0 <= End <= Start <= 1 and 0 < Decay <= 1
func (d Decaying) Validate() error {
	if d.End < 0 || d.Start > 1 || d.End > d.Start {
		return fmt.Errorf("policy: need 0 <= end (%v) <= start (%v) <= 1",
			d.End, d.Start)
	}
	if d.Decay <= 0 || d.Decay > 1 {
		return fmt.Errorf("policy: decay must be in (0, 1], got %v", d.Decay)
	}
	return nil
}

// Fixed implements a schedule which holds ε constant
type Fixed struct {
	Value float64
}

// Initial implements the Schedule interface
func (f Fixed) Initial() float64 {
	return f.Value
}

// Next implements the Schedule interface
func (f Fixed) Next(float64) float64 {
	return f.Value
}

// Floor implements the Schedule interface
func (f Fixed) Floor() float64 {
	return f.Value
}

// Validate ensures 0 <= Value <= 1
func (f Fixed) Validate() error {
	if f.Value < 0 || f.Value > 1 {
		return fmt.Errorf("policy: epsilon must be in [0, 1], got %v",
			f.Value)
	}
	return nil
}
