// Package learning implements the query side of active automata learning:
// systems under learning, membership oracles, and the guard relaxation pass
// that repairs hypotheses built from imprecise clock information.
package learning

// SUL is the system under learning. A timed word is fed as an alternating
// sequence of time elapses and discrete actions, bracketed by Pre and Post.
type SUL interface {
	// Pre resets the system before feeding a timed word.
	Pre()
	// Post is called after feeding a timed word.
	Post()
	// StepAction feeds a discrete action and reports acceptance.
	StepAction(action byte) bool
	// StepDuration feeds a time elapse and reports acceptance.
	StepDuration(duration float64) bool
	// Count is the number of timed words fed so far.
	Count() int
}
