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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	logonAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gocas",
		Subsystem: "provider",
		Name:      "logon_attempts_total",
		Help:      "Total number of logon attempts by result.",
	}, []string{"result"})

	logoutBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gocas",
		Subsystem: "provider",
		Name:      "logout_broadcasts_total",
		Help:      "Total number of logout broadcast messages handed to the queue.",
	})
)
