package prompts

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const cacheTTL = 5 * time.Minute

// cache holds effective instructions per stage so the workflow does not
// query the database on every capability call.
type cache struct {
	c *ristretto.Cache[string, string]
}

func newCache() (*cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 100,
		MaxCost:     int64(len(stages)) * 4,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &cache{c: c}, nil
}

func (c *cache) get(stage Stage) (string, bool) {
	return c.c.Get(string(stage))
}

func (c *cache) set(stage Stage, text string) {
	c.c.SetWithTTL(string(stage), text, 1, cacheTTL)
}

func (c *cache) clear() {
	c.c.Clear()
}
