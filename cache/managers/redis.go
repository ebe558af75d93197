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
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/cache"
)

const defaultRedisKeyPrefix = "gocas:session"

// redisDao implements the cache.Dao interface on top of a Redis server. Each
// token maps to one Redis hash so that the token's attributes share a single
// expiry.
type redisDao struct {
	client *redis.Client
	prefix string

	logger logrus.FieldLogger
}

// NewRedisDao creates a cache.Dao backed by the provided Redis client. The
// prefix is prepended to every token key, pass empty to use the default.
func NewRedisDao(client *redis.Client, prefix string, logger logrus.FieldLogger) cache.Dao {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}

	return &redisDao{
		client: client,
		prefix: prefix,

		logger: logger,
	}
}

func (d *redisDao) key(token string) string {
	return fmt.Sprintf("%s:%s", d.prefix, token)
}

func (d *redisDao) GetAttribute(ctx context.Context, token string, name string) (string, error) {
	value, err := d.client.HGet(ctx, d.key(token), name).Result()
	if err == redis.Nil {
		return "", cache.ErrNoSuchAttribute
	} else if err != nil {
		return "", err
	}

	return value, nil
}

func (d *redisDao) SetAttribute(ctx context.Context, token string, name string, value string) error {
	return d.client.HSet(ctx, d.key(token), name, value).Err()
}

func (d *redisDao) AttributeNames(ctx context.Context, token string) ([]string, error) {
	return d.client.HKeys(ctx, d.key(token)).Result()
}

func (d *redisDao) SetExpire(ctx context.Context, token string, expire time.Duration) error {
	return d.client.Expire(ctx, d.key(token), expire).Err()
}

func (d *redisDao) SetPersist(ctx context.Context, token string) error {
	return d.client.Persist(ctx, d.key(token)).Err()
}

func (d *redisDao) Exists(ctx context.Context, token string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(token)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (d *redisDao) Del(ctx context.Context, token string) error {
	return d.client.Del(ctx, d.key(token)).Err()
}
