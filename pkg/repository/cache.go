package repository

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// resultCache is the fast tier: an expiring LRU of task responses
type resultCache struct {
	lru *expirable.LRU[types.TaskID, *model.Response]
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	return &resultCache{
		lru: expirable.NewLRU[types.TaskID, *model.Response](size, nil, ttl),
	}
}

func (c *resultCache) put(resp *model.Response) {
	c.lru.Add(resp.TaskID, resp.Clone())
}

func (c *resultCache) get(taskID types.TaskID) *model.Response {
	resp, ok := c.lru.Get(taskID)
	if !ok {
		return nil
	}
	return resp.Clone()
}

func (c *resultCache) purge() {
	c.lru.Purge()
}
