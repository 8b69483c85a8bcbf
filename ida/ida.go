// Package ida provides the information dispersal algorithms that split blobs
// into fragments and recombine them, and a registry to select one by name.
package ida

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// DefaultRedundantFragmentNumber is the redundancy used when none is configured.
const DefaultRedundantFragmentNumber = 2

// lengthHeaderSize is the size of the big-endian payload length prepended before splitting.
const lengthHeaderSize = 8

// Constructor creates an algorithm for n fragments of which r are redundant.
type Constructor func(n, r int) (interfaces.DispersalAlgorithm, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{
		CRSName:    func(n, r int) (interfaces.DispersalAlgorithm, error) { return NewCauchyReedSolomon(n, r) },
		ShamirName: func(n, r int) (interfaces.DispersalAlgorithm, error) { return NewShamir(n, r) },
	}
)

// Register makes an algorithm available to New under name.
func Register(name string, constructor Constructor) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return fmt.Errorf("dispersal algorithm %q already registered", name)
	}
	registry[name] = constructor
	return nil
}

// New creates the algorithm registered under name.
func New(name string, n, r int) (interfaces.DispersalAlgorithm, error) {
	registryMu.RLock()
	constructor, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, interfaces.NewAlgorithmError("ida.New",
			fmt.Sprintf("unsupported dispersal algorithm %q", name), interfaces.ErrInvalidConfiguration)
	}
	return constructor(n, r)
}

// Names returns the registered algorithm names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateCounts(op string, n, r int) error {
	if n <= 0 {
		return interfaces.NewAlgorithmError(op,
			fmt.Sprintf("fragment number must be positive, got %d", n), interfaces.ErrInvalidConfiguration)
	}
	if r < 0 {
		return interfaces.NewAlgorithmError(op,
			fmt.Sprintf("redundant fragment number can't be negative, got %d", r), interfaces.ErrInvalidConfiguration)
	}
	if r >= n {
		return interfaces.NewAlgorithmError(op,
			fmt.Sprintf("redundant fragment number '%d' can't be greater than or equal to fragment number '%d'", r, n),
			interfaces.ErrInvalidConfiguration)
	}
	return nil
}

// slotFragments places fragments by number into a slice of n slots, rejecting
// out-of-range and duplicated numbers, and returns how many slots are filled.
func slotFragments(op string, n int, fragments []interfaces.Fragment) ([][]byte, int, error) {
	slots := make([][]byte, n)
	filled := 0
	for _, f := range fragments {
		if f.Number < 0 || f.Number >= n {
			return nil, 0, interfaces.NewAlgorithmError(op,
				fmt.Sprintf("fragment number %d out of range [0, %d)", f.Number, n), nil)
		}
		if slots[f.Number] != nil {
			return nil, 0, interfaces.NewAlgorithmError(op,
				fmt.Sprintf("duplicate fragment number %d", f.Number), nil)
		}
		if f.Data == nil {
			return nil, 0, interfaces.NewAlgorithmError(op,
				fmt.Sprintf("fragment %d has no data", f.Number), nil)
		}
		slots[f.Number] = f.Data
		filled++
	}
	return slots, filled, nil
}

func withLengthHeader(data []byte) []byte {
	buf := make([]byte, lengthHeaderSize+len(data))
	binary.BigEndian.PutUint64(buf, uint64(len(data)))
	copy(buf[lengthHeaderSize:], data)
	return buf
}

func stripLengthHeader(op string, buf []byte) ([]byte, error) {
	if len(buf) < lengthHeaderSize {
		return nil, interfaces.NewAlgorithmError(op, "reconstructed data too short", nil)
	}
	size := binary.BigEndian.Uint64(buf[:lengthHeaderSize])
	if size > uint64(len(buf)-lengthHeaderSize) {
		return nil, interfaces.NewAlgorithmError(op,
			fmt.Sprintf("reconstructed length header %d exceeds payload of %d bytes", size, len(buf)-lengthHeaderSize), nil)
	}

	out := make([]byte, size)
	copy(out, buf[lengthHeaderSize:lengthHeaderSize+int(size)])
	return out, nil
}
