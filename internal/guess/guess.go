// Package guess implements the agent's side of the HumanPicksNumber mode:
// picking a number inside the remaining range and shrinking that range from
// the player's Higher/Lower feedback.
package guess

// Direction is the player's answer to a proposed number.
type Direction int

const (
	Higher Direction = iota + 1
	Lower
)

func (d Direction) String() string {
	switch d {
	case Higher:
		return "higher"
	case Lower:
		return "lower"
	default:
		return "unknown"
	}
}

// Intner is the subset of *rand.Rand the guesser needs.
type Intner interface {
	IntN(n int) int
}

// Propose returns a uniformly random number in [low, high].
//
// The pick is intentionally not the midpoint: a bisecting agent always needs
// the same number of turns for the same secret, which makes the game dull.
// Callers must ensure low <= high.
func Propose(r Intner, low, high int) int {
	return low + r.IntN(high-low+1)
}

// Narrow applies the player's answer for guess to the range [low, high].
// The result may be empty (low > high) when the answers contradict each
// other; check it with Valid.
func Narrow(low, high, guess int, dir Direction) (int, int) {
	switch dir {
	case Higher:
		return guess + 1, high
	case Lower:
		return low, guess - 1
	default:
		return low, high
	}
}

// Valid reports whether [low, high] still contains at least one number.
func Valid(low, high int) bool {
	return low <= high
}
