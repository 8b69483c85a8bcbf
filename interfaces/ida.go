package interfaces

// DispersalAlgorithm is an information dispersal algorithm configured with a
// total fragment number N and a redundant fragment number R < N.
type DispersalAlgorithm interface {
	// FragmentNumber returns N, the number of fragments Split produces.
	FragmentNumber() int

	// RedundantFragmentNumber returns R, the number of fragments that can be
	// lost while reconstruction is still possible.
	RedundantFragmentNumber() int

	// Split returns exactly N fragments, ordered by fragment number.
	Split(data []byte) ([][]byte, error)

	// Combine reconstructs the original data from at least N-R fragments,
	// regardless of which subset is given and in which order.
	Combine(fragments []Fragment) ([]byte, error)
}

// RequiredFragments returns the number of fragments needed to reconstruct data.
func RequiredFragments(algorithm DispersalAlgorithm) int {
	return algorithm.FragmentNumber() - algorithm.RedundantFragmentNumber()
}
