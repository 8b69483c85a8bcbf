package ida

import (
	"fmt"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// ShamirName is the registry name of the Shamir secret sharing algorithm.
const ShamirName = "shamir"

// Shamir disperses data as N Shamir shares with threshold N-R. No N-R-1
// fragments reveal anything about the data, at the price of every fragment
// being as large as the payload.
type Shamir struct {
	fragmentNumber          int
	redundantFragmentNumber int
}

// NewShamir creates the algorithm for n shares of which r are redundant.
// The threshold n-r must be at least 2 and n at most 255.
func NewShamir(n, r int) (*Shamir, error) {
	if err := validateCounts("shamir.New", n, r); err != nil {
		return nil, err
	}
	if n-r < 2 {
		return nil, interfaces.NewAlgorithmError("shamir.New",
			fmt.Sprintf("threshold %d must be at least 2", n-r), interfaces.ErrInvalidConfiguration)
	}
	if n > 255 {
		return nil, interfaces.NewAlgorithmError("shamir.New",
			fmt.Sprintf("fragment number %d exceeds 255 shares", n), interfaces.ErrInvalidConfiguration)
	}

	return &Shamir{fragmentNumber: n, redundantFragmentNumber: r}, nil
}

func (a *Shamir) FragmentNumber() int { return a.fragmentNumber }

func (a *Shamir) RedundantFragmentNumber() int { return a.redundantFragmentNumber }

// Split returns N shares. Each share carries its own x-coordinate.
func (a *Shamir) Split(data []byte) ([][]byte, error) {
	shares, err := shamir.Split(withLengthHeader(data), a.fragmentNumber, a.fragmentNumber-a.redundantFragmentNumber)
	if err != nil {
		return nil, interfaces.NewAlgorithmError("shamir.Split", "error while splitting data", err)
	}
	return shares, nil
}

// Combine reconstructs the payload from at least N-R shares.
func (a *Shamir) Combine(fragments []interfaces.Fragment) ([]byte, error) {
	slots, filled, err := slotFragments("shamir.Combine", a.fragmentNumber, fragments)
	if err != nil {
		return nil, err
	}

	threshold := a.fragmentNumber - a.redundantFragmentNumber
	if filled < threshold {
		return nil, interfaces.NewAlgorithmError("shamir.Combine",
			fmt.Sprintf("got %d shares, need at least %d", filled, threshold), nil)
	}

	parts := make([][]byte, 0, filled)
	for _, slot := range slots {
		if slot != nil {
			parts = append(parts, slot)
		}
	}

	combined, err := shamir.Combine(parts)
	if err != nil {
		return nil, interfaces.NewAlgorithmError("shamir.Combine", "error while combining data", err)
	}

	return stripLengthHeader("shamir.Combine", combined)
}

func (a *Shamir) String() string {
	return fmt.Sprintf("Shamir[fragmentNumber=%d, redundantFragmentNumber=%d]",
		a.fragmentNumber, a.redundantFragmentNumber)
}
