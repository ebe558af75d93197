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
	"fmt"

	"github.com/nameof/gocas/mq"
)

const defaultMemoryQueueSize = 64

// MemoryQueue is an in-process queue connecting sender and consumer with a
// buffered channel. It serves single instance deployments and tests, where
// sender and receiver live in the same process.
type MemoryQueue struct {
	ch chan *mq.Message
}

// NewMemoryQueue creates a MemoryQueue with the provided buffer size, 0
// means default.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = defaultMemoryQueueSize
	}

	return &MemoryQueue{
		ch: make(chan *mq.Message, size),
	}
}

// SendMessage implements the mq.Sender interface. It never blocks - when the
// queue is full the message is dropped with an error, matching the lossy
// at-most-once contract of the logout broadcast.
func (q *MemoryQueue) SendMessage(ctx context.Context, m *mq.Message) error {
	select {
	case q.ch <- m:
		return nil
	default:
		return fmt.Errorf("memory queue full, message %s dropped", m.ID)
	}
}

// Run consumes messages with the provided handler until the context is done.
func (q *MemoryQueue) Run(ctx context.Context, handler mq.Handler) error {
	for {
		select {
		case m := <-q.ch:
			handler.HandleMessage(ctx, m)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
