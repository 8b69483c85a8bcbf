package ida

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/ruteri/ida-persistence-engine/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagged(fragments [][]byte, numbers ...int) []interfaces.Fragment {
	out := make([]interfaces.Fragment, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, interfaces.Fragment{Number: n, Data: bytes.Clone(fragments[n])})
	}
	return out
}

func randomBytes(t *testing.T, size int) []byte {
	t.Helper()
	buf := make([]byte, size)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		n, r      int
		wantErr   bool
	}{
		{"crs", CRSName, 5, 2, false},
		{"crs single redundancy", CRSName, 3, 1, false},
		{"shamir", ShamirName, 5, 2, false},
		{"unknown", "xor", 5, 2, true},
		{"redundancy equals fragments", CRSName, 3, 3, true},
		{"redundancy exceeds fragments", ShamirName, 3, 4, true},
		{"zero fragments", CRSName, 0, 0, true},
		{"negative redundancy", CRSName, 3, -1, true},
		{"shamir threshold one", ShamirName, 3, 2, true},
		{"shamir too many shares", ShamirName, 256, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alg, err := New(tt.algorithm, tt.n, tt.r)
			if tt.wantErr {
				require.Error(t, err)
				var algErr *interfaces.AlgorithmError
				assert.True(t, errors.As(err, &algErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.n, alg.FragmentNumber())
			assert.Equal(t, tt.r, alg.RedundantFragmentNumber())
			assert.Equal(t, tt.n-tt.r, interfaces.RequiredFragments(alg))
		})
	}
}

func TestRegister(t *testing.T) {
	err := Register(CRSName, func(n, r int) (interfaces.DispersalAlgorithm, error) { return NewCauchyReedSolomon(n, r) })
	assert.Error(t, err)

	require.NoError(t, Register("crs-alias", func(n, r int) (interfaces.DispersalAlgorithm, error) {
		return NewCauchyReedSolomon(n, r)
	}))
	alg, err := New("crs-alias", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, alg.FragmentNumber())
	assert.Contains(t, Names(), "crs-alias")
}

func TestRoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"empty":      {},
		"one byte":   {0x42},
		"short":      []byte("information dispersal"),
		"chunk size": nil,
		"large":      nil,
	}
	payloads["chunk size"] = randomBytes(t, 4096)
	payloads["large"] = randomBytes(t, 100_003)

	for _, algorithm := range []string{CRSName, ShamirName} {
		alg, err := New(algorithm, 5, 2)
		require.NoError(t, err)

		for name, payload := range payloads {
			t.Run(algorithm+"/"+name, func(t *testing.T) {
				fragments, err := alg.Split(payload)
				require.NoError(t, err)
				require.Len(t, fragments, 5)

				// Every subset of size N-R reconstructs the payload.
				subsets := [][]int{{0, 1, 2}, {2, 3, 4}, {0, 2, 4}, {4, 1, 3}}
				for _, subset := range subsets {
					combined, err := alg.Combine(tagged(fragments, subset...))
					require.NoError(t, err, "subset %v", subset)
					assert.True(t, bytes.Equal(payload, combined), "subset %v", subset)
				}

				combined, err := alg.Combine(tagged(fragments, 0, 1, 2, 3, 4))
				require.NoError(t, err)
				assert.True(t, bytes.Equal(payload, combined))
			})
		}
	}
}

func TestCombine_Errors(t *testing.T) {
	for _, algorithm := range []string{CRSName, ShamirName} {
		alg, err := New(algorithm, 5, 2)
		require.NoError(t, err)
		fragments, err := alg.Split([]byte("some data to disperse"))
		require.NoError(t, err)

		t.Run(algorithm+"/too few", func(t *testing.T) {
			_, err := alg.Combine(tagged(fragments, 0, 4))
			assert.Error(t, err)
		})

		t.Run(algorithm+"/duplicate number", func(t *testing.T) {
			in := tagged(fragments, 0, 1, 2)
			in = append(in, interfaces.Fragment{Number: 1, Data: fragments[1]})
			_, err := alg.Combine(in)
			assert.Error(t, err)
		})

		t.Run(algorithm+"/out of range", func(t *testing.T) {
			in := tagged(fragments, 0, 1)
			in = append(in, interfaces.Fragment{Number: 5, Data: fragments[2]})
			_, err := alg.Combine(in)
			assert.Error(t, err)
		})
	}
}

func TestCauchyReedSolomon_FragmentSize(t *testing.T) {
	alg, err := NewCauchyReedSolomon(6, 2)
	require.NoError(t, err)

	payload := randomBytes(t, 4000)
	fragments, err := alg.Split(payload)
	require.NoError(t, err)
	require.Len(t, fragments, 6)

	for _, f := range fragments {
		assert.Equal(t, len(fragments[0]), len(f))
		assert.Less(t, len(f), len(payload)/2)
	}
}
