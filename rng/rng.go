package rng

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"sync"
)

// Source supplies the randomness used for dealing, shuffling and
// tie-break selection. Round outcomes must not be guessable, so the
// production implementation draws from crypto/rand.
type Source interface {
	// Intn returns a uniform int in [0, n). Panics if n <= 0.
	Intn(n int) int
	// Between returns a uniform int in [lo, hi] inclusive.
	Between(lo, hi int) int
	// Sample returns k distinct values drawn without replacement from
	// [lo, hi] inclusive.
	Sample(lo, hi, k int) ([]int, error)
}

// Crypto is the default crypto/rand backed source.
type Crypto struct{}

func NewCrypto() *Crypto {
	return &Crypto{}
}

func (c *Crypto) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn with non-positive bound")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failing means the platform entropy source is
		// broken; nothing sensible to do but abort.
		panic("rng: crypto source unavailable: " + err.Error())
	}
	return int(v.Int64())
}

func (c *Crypto) Between(lo, hi int) int {
	return between(c, lo, hi)
}

func (c *Crypto) Sample(lo, hi, k int) ([]int, error) {
	return sample(c, lo, hi, k)
}

// Seeded is a deterministic source for tests. Not safe for production
// use: outcomes are predictable from the seed.
type Seeded struct {
	mu sync.Mutex
	r  *mrand.Rand
}

func NewSeeded(seed int64) *Seeded {
	return &Seeded{r: mrand.New(mrand.NewSource(seed))}
}

func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

func (s *Seeded) Between(lo, hi int) int {
	return between(s, lo, hi)
}

func (s *Seeded) Sample(lo, hi, k int) ([]int, error) {
	return sample(s, lo, hi, k)
}

func between(src Source, lo, hi int) int {
	if hi < lo {
		panic(fmt.Sprintf("rng: Between with inverted range [%d, %d]", lo, hi))
	}
	return lo + src.Intn(hi-lo+1)
}

// sample is a partial Fisher-Yates over the materialized range.
func sample(src Source, lo, hi, k int) ([]int, error) {
	n := hi - lo + 1
	if k < 0 || k > n {
		return nil, fmt.Errorf("rng: cannot sample %d values from [%d, %d]", k, lo, hi)
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = lo + i
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		j := i + src.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
		out[i] = pool[i]
	}
	return out, nil
}
