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

package mq

import (
	"context"
)

// A Sender hands messages to an outbound queue. SendMessage must return
// without waiting for delivery - the latency of slow or unreachable
// receivers never propagates back to the caller.
type Sender interface {
	SendMessage(ctx context.Context, m *Message) error
}

// A Handler consumes delivered messages on the receiving side of a queue.
type Handler interface {
	HandleMessage(ctx context.Context, m *Message)
}
