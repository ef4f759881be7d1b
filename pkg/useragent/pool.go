package useragent

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync/atomic"
)

// Browser user agents, grouped so the header can agree with the TLS fingerprint.
var (
	Chrome = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	}
	Firefox = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:132.0) Gecko/20100101 Firefox/132.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:132.0) Gecko/20100101 Firefox/132.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:132.0) Gecko/20100101 Firefox/132.0",
	}
	Safari = []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 18_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Mobile/15E148 Safari/604.1",
	}
)

// DefaultFor returns the user agents matching a browser name ("chrome",
// "firefox", "safari"). Any other name gets all of them.
func DefaultFor(browser string) []string {
	switch strings.ToLower(browser) {
	case "chrome":
		return Chrome
	case "firefox":
		return Firefox
	case "safari":
		return Safari
	}
	all := make([]string, 0, len(Chrome)+len(Firefox)+len(Safari))
	all = append(all, Chrome...)
	all = append(all, Firefox...)
	return append(all, Safari...)
}

// Pool represents a collection of User-Agents that can be retrieved sequentially or randomly.
type Pool struct {
	uas     []string
	random  bool
	counter atomic.Uint64
}

// NewPool creates a round-robin User-Agent pool. Blank entries are dropped;
// if nothing is left it falls back to DefaultFor("").
func NewPool(uas []string) *Pool {
	copied := make([]string, 0, len(uas))
	for _, ua := range uas {
		if ua = strings.TrimSpace(ua); ua != "" {
			copied = append(copied, ua)
		}
	}
	if len(copied) == 0 {
		copied = DefaultFor("")
	}
	return &Pool{uas: copied}
}

// NewRandomPool is NewPool with random selection for Next.
func NewRandomPool(uas []string) *Pool {
	p := NewPool(uas)
	p.random = true
	return p
}

// Next returns a User-Agent according to the pool's selection mode.
// It is safe for concurrent use.
func (p *Pool) Next() string {
	if p.random {
		return p.Random()
	}
	return p.Sequential()
}

// Sequential returns the next User-Agent in the pool in a round-robin fashion.
func (p *Pool) Sequential() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Random returns a random User-Agent from the pool using crypto/rand.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.Sequential()
	}
	return p.uas[n.Int64()]
}

// Len returns the number of User-Agents in the pool.
func (p *Pool) Len() int {
	return len(p.uas)
}
