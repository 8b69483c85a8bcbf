package ida

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// CRSName is the registry name of the Cauchy Reed-Solomon algorithm.
const CRSName = "crs"

// CauchyReedSolomon disperses data into N-R data fragments and R parity
// fragments. Any N-R fragments reconstruct the data, and each fragment is
// roughly 1/(N-R) of the payload.
type CauchyReedSolomon struct {
	fragmentNumber          int
	redundantFragmentNumber int
	encoder                 reedsolomon.Encoder
}

// NewCauchyReedSolomon creates the algorithm for n fragments with r redundant ones.
func NewCauchyReedSolomon(n, r int) (*CauchyReedSolomon, error) {
	if err := validateCounts("crs.New", n, r); err != nil {
		return nil, err
	}

	encoder, err := reedsolomon.New(n-r, r, reedsolomon.WithCauchyMatrix())
	if err != nil {
		return nil, interfaces.NewAlgorithmError("crs.New",
			fmt.Sprintf("unable to create codec with %d data and %d parity fragments", n-r, r), err)
	}

	return &CauchyReedSolomon{
		fragmentNumber:          n,
		redundantFragmentNumber: r,
		encoder:                 encoder,
	}, nil
}

func (a *CauchyReedSolomon) FragmentNumber() int { return a.fragmentNumber }

func (a *CauchyReedSolomon) RedundantFragmentNumber() int { return a.redundantFragmentNumber }

// Split returns N equally sized fragments. The payload length is encoded in
// the first data fragment so padding can be removed on Combine.
func (a *CauchyReedSolomon) Split(data []byte) ([][]byte, error) {
	shards, err := a.encoder.Split(withLengthHeader(data))
	if err != nil {
		return nil, interfaces.NewAlgorithmError("crs.Split", "error while splitting data", err)
	}

	if err := a.encoder.Encode(shards); err != nil {
		return nil, interfaces.NewAlgorithmError("crs.Split", "error while computing parity fragments", err)
	}

	return shards, nil
}

// Combine reconstructs the payload from at least N-R tagged fragments.
func (a *CauchyReedSolomon) Combine(fragments []interfaces.Fragment) ([]byte, error) {
	shards, filled, err := slotFragments("crs.Combine", a.fragmentNumber, fragments)
	if err != nil {
		return nil, err
	}

	dataShards := a.fragmentNumber - a.redundantFragmentNumber
	if filled < dataShards {
		return nil, interfaces.NewAlgorithmError("crs.Combine",
			fmt.Sprintf("got %d fragments, need at least %d", filled, dataShards), nil)
	}

	if err := a.encoder.ReconstructData(shards); err != nil {
		return nil, interfaces.NewAlgorithmError("crs.Combine", "error while combining data", err)
	}

	var size int
	for _, shard := range shards[:dataShards] {
		size += len(shard)
	}
	joined := make([]byte, 0, size)
	for _, shard := range shards[:dataShards] {
		joined = append(joined, shard...)
	}

	return stripLengthHeader("crs.Combine", joined)
}

func (a *CauchyReedSolomon) String() string {
	return fmt.Sprintf("CauchyReedSolomon[fragmentNumber=%d, redundantFragmentNumber=%d]",
		a.fragmentNumber, a.redundantFragmentNumber)
}
