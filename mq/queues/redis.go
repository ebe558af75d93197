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

package queues

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/mq"
)

const (
	defaultRedisQueueKey = "gocas:mq:logout"
	redisPopTimeout      = time.Second
)

// RedisQueue is a queue on a Redis list, connecting senders and consumers
// across process boundaries. Messages travel as JSON.
type RedisQueue struct {
	client *redis.Client
	key    string

	logger logrus.FieldLogger
}

// NewRedisQueue creates a RedisQueue on the provided Redis client and list
// key, pass an empty key to use the default.
func NewRedisQueue(client *redis.Client, key string, logger logrus.FieldLogger) *RedisQueue {
	if key == "" {
		key = defaultRedisQueueKey
	}

	return &RedisQueue{
		client: client,
		key:    key,

		logger: logger,
	}
}

// SendMessage implements the mq.Sender interface. The message is pushed onto
// the Redis list without waiting for any consumer.
func (q *RedisQueue) SendMessage(ctx context.Context, m *mq.Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}

	return q.client.LPush(ctx, q.key, raw).Err()
}

// Run consumes messages with the provided handler until the context is
// done. Consumption uses blocking pops with a short timeout so cancellation
// is noticed promptly.
func (q *RedisQueue) Run(ctx context.Context, handler mq.Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := q.client.BRPop(ctx, redisPopTimeout, q.key).Result()
		if err == redis.Nil {
			continue
		} else if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.WithError(err).Warnln("mq redis queue receive failed")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		// BRPop returns key and value.
		if len(result) < 2 {
			continue
		}
		var m mq.Message
		if err := json.Unmarshal([]byte(result[1]), &m); err != nil {
			q.logger.WithError(err).Warnln("mq redis queue discarding undecodable message")
			continue
		}

		handler.HandleMessage(ctx, &m)
	}
}
