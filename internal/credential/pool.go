// Package credential rotates API keys round-robin, pairing each key with its
// own admission governor so limits are tracked per credential.
package credential

import (
	"sync/atomic"

	"github.com/lingopool/lingopool/internal/ratelimit"
	"github.com/lingopool/lingopool/internal/translation"
)

type entry struct {
	key      string
	governor *ratelimit.Governor
}

// Pool is an ordered, fixed set of (key, governor) pairs with a round-robin
// cursor. Safe for concurrent use.
type Pool struct {
	entries []entry
	cursor  atomic.Uint64
}

func NewPool(keys []string, cfg ratelimit.Config) (*Pool, error) {
	if len(keys) == 0 {
		return nil, &translation.ConfigurationError{Reason: "no API keys configured"}
	}
	p := &Pool{entries: make([]entry, 0, len(keys))}
	for _, k := range keys {
		p.entries = append(p.entries, entry{key: k, governor: ratelimit.New(cfg)})
	}
	return p, nil
}

// Next returns the current key and its governor, advancing the cursor modulo
// the pool size. Rotation is a single atomic counter, so concurrent callers
// never skip or repeat an index.
func (p *Pool) Next() (string, *ratelimit.Governor) {
	i := (p.cursor.Add(1) - 1) % uint64(len(p.entries))
	e := p.entries[i]
	return e.key, e.governor
}

func (p *Pool) Size() int {
	return len(p.entries)
}
