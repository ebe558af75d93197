/*
 * Copyright 2019 gocas authors and its licensors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package managers

import (
	"context"
	"sync"
	"time"

	"github.com/orcaman/concurrent-map"

	"github.com/nameof/gocas/cache"
)

const memoryPurgeInterval = 30 * time.Second

// memoryDao implements the cache.Dao interface with an in-process table. It
// is used for single instance deployments and in tests, where no shared
// Redis is available. The memoryDao's methods are safe to call from
// multiple Go routines.
type memoryDao struct {
	table cmap.ConcurrentMap
}

type tokenRecord struct {
	mutex      sync.RWMutex
	attributes map[string]string
	deadline   time.Time // Zero value means no expiry.
}

func (rr *tokenRecord) expired(now time.Time) bool {
	rr.mutex.RLock()
	defer rr.mutex.RUnlock()
	return !rr.deadline.IsZero() && rr.deadline.Before(now)
}

// NewMemoryDao creates an in-memory cache.Dao. Expired tokens are purged
// periodically until the provided context is done.
func NewMemoryDao(ctx context.Context) cache.Dao {
	d := &memoryDao{
		table: cmap.New(),
	}

	// Cleanup function.
	go func() {
		ticker := time.NewTicker(memoryPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.purgeExpired()
			case <-ctx.Done():
				return
			}
		}
	}()

	return d
}

func (d *memoryDao) purgeExpired() {
	var expired []string
	now := time.Now()
	for entry := range d.table.IterBuffered() {
		if entry.Val.(*tokenRecord).expired(now) {
			expired = append(expired, entry.Key)
		}
	}
	for _, token := range expired {
		d.table.Remove(token)
	}
}

// get returns the live record for token, or nil. Expired records are removed
// right away so a token cannot be resurrected by a later write.
func (d *memoryDao) get(token string) *tokenRecord {
	stored, found := d.table.Get(token)
	if !found {
		return nil
	}
	rr := stored.(*tokenRecord)
	if rr.expired(time.Now()) {
		d.table.Remove(token)
		return nil
	}

	return rr
}

func (d *memoryDao) getOrCreate(token string) *tokenRecord {
	if rr := d.get(token); rr != nil {
		return rr
	}

	rr := &tokenRecord{
		attributes: make(map[string]string),
	}
	if !d.table.SetIfAbsent(token, rr) {
		if existing := d.get(token); existing != nil {
			return existing
		}
		d.table.Set(token, rr)
	}

	return rr
}

func (d *memoryDao) GetAttribute(ctx context.Context, token string, name string) (string, error) {
	rr := d.get(token)
	if rr == nil {
		return "", cache.ErrNoSuchAttribute
	}

	rr.mutex.RLock()
	defer rr.mutex.RUnlock()
	value, found := rr.attributes[name]
	if !found {
		return "", cache.ErrNoSuchAttribute
	}

	return value, nil
}

func (d *memoryDao) SetAttribute(ctx context.Context, token string, name string, value string) error {
	rr := d.getOrCreate(token)

	rr.mutex.Lock()
	defer rr.mutex.Unlock()
	rr.attributes[name] = value

	return nil
}

func (d *memoryDao) AttributeNames(ctx context.Context, token string) ([]string, error) {
	rr := d.get(token)
	if rr == nil {
		return nil, nil
	}

	rr.mutex.RLock()
	defer rr.mutex.RUnlock()
	names := make([]string, 0, len(rr.attributes))
	for name := range rr.attributes {
		names = append(names, name)
	}

	return names, nil
}

func (d *memoryDao) SetExpire(ctx context.Context, token string, expire time.Duration) error {
	rr := d.get(token)
	if rr == nil {
		return nil
	}

	rr.mutex.Lock()
	defer rr.mutex.Unlock()
	rr.deadline = time.Now().Add(expire)

	return nil
}

func (d *memoryDao) SetPersist(ctx context.Context, token string) error {
	rr := d.get(token)
	if rr == nil {
		return nil
	}

	rr.mutex.Lock()
	defer rr.mutex.Unlock()
	rr.deadline = time.Time{}

	return nil
}

func (d *memoryDao) Exists(ctx context.Context, token string) (bool, error) {
	return d.get(token) != nil, nil
}

func (d *memoryDao) Del(ctx context.Context, token string) error {
	d.table.Remove(token)
	return nil
}
