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

package provider

import (
	"github.com/orcaman/concurrent-map"
	"golang.org/x/time/rate"
)

const (
	logonRateInterval = 2 // seconds per regained attempt
	logonRateBurst    = 5
)

// logonLimiter throttles logon attempts per username so credential guessing
// against one account is slowed down without affecting others.
type logonLimiter struct {
	table cmap.ConcurrentMap
}

func newLogonLimiter() *logonLimiter {
	return &logonLimiter{
		table: cmap.New(),
	}
}

func (l *logonLimiter) allow(username string) bool {
	stored, found := l.table.Get(username)
	if !found {
		limiter := rate.NewLimiter(rate.Limit(1.0/logonRateInterval), logonRateBurst)
		if !l.table.SetIfAbsent(username, limiter) {
			stored, _ = l.table.Get(username)
		} else {
			stored = limiter
		}
	}

	return stored.(*rate.Limiter).Allow()
}
