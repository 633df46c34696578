package memory

import (
	"time"

	"ai-interior-design-be/pkg/replicate"

	"github.com/patrickmn/go-cache"
)

// PredictionCache holds the last provider answer per prediction for a short window,
// so a client polling in a tight loop does not turn into one provider call per request.
type PredictionCache struct {
	cache *cache.Cache
}

func NewPredictionCache(ttl time.Duration) *PredictionCache {
	return &PredictionCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (c *PredictionCache) Save(p *replicate.Prediction) {
	c.cache.Set(p.ID, p, cache.DefaultExpiration)
}

func (c *PredictionCache) Get(predictionID string) (*replicate.Prediction, bool) {
	if x, found := c.cache.Get(predictionID); found {
		return x.(*replicate.Prediction), true
	}
	return nil, false
}

func (c *PredictionCache) Delete(predictionID string) {
	c.cache.Delete(predictionID)
}
