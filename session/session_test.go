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

package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/cache"
	"github.com/nameof/gocas/cache/managers"
)

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{DisableColors: true},
	Level:     logrus.DebugLevel,
}

// recordingDao wraps a cache.Dao and counts expiry related calls.
type recordingDao struct {
	cache.Dao

	expireCalls  int
	lastExpire   time.Duration
	persistCalls int
	delCalls     int
}

func (d *recordingDao) SetExpire(ctx context.Context, token string, expire time.Duration) error {
	d.expireCalls++
	d.lastExpire = expire
	return d.Dao.SetExpire(ctx, token, expire)
}

func (d *recordingDao) SetPersist(ctx context.Context, token string) error {
	d.persistCalls++
	return d.Dao.SetPersist(ctx, token)
}

func (d *recordingDao) Del(ctx context.Context, token string) error {
	d.delCalls++
	return d.Dao.Del(ctx, token)
}

func newTestSession(ctx context.Context, t *testing.T, token string) (*Session, *recordingDao) {
	d := &recordingDao{Dao: managers.NewMemoryDao(ctx)}
	s, err := New(ctx, d, token, logger)
	if err != nil {
		t.Fatal(err)
	}

	return s, d
}

func TestSessionDefaultInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, _ := newTestSession(ctx, t, "token-1")
	if s.MaxInactiveInterval() != DefaultMaxInactiveInterval {
		t.Errorf("got %v want %v", s.MaxInactiveInterval(), DefaultMaxInactiveInterval)
	}
}

func TestSessionCommitRefreshesExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, d := newTestSession(ctx, t, "token-2")
	if err := s.SetAttribute(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}

	// Every commit refreshes the time to live, that is what keeps active
	// sessions alive.
	for i := 0; i < 3; i++ {
		if err := s.Commit(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if d.expireCalls != 3 {
		t.Errorf("got %d expire calls want 3", d.expireCalls)
	}
	if want := time.Duration(DefaultMaxInactiveInterval) * time.Second; d.lastExpire != want {
		t.Errorf("got expire %v want %v", d.lastExpire, want)
	}
	if d.persistCalls != 0 {
		t.Errorf("got %d persist calls want 0", d.persistCalls)
	}
}

func TestSessionCommitPersistsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, d := newTestSession(ctx, t, "token-3")
	if err := s.SetMaxInactiveInterval(ctx, PersistentInterval); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Commit(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if d.persistCalls != 1 {
		t.Errorf("got %d persist calls want 1", d.persistCalls)
	}
	if d.expireCalls != 0 {
		t.Errorf("got %d expire calls want 0", d.expireCalls)
	}
}

func TestSessionIntervalWrittenEagerly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, d := newTestSession(ctx, t, "token-4")
	if err := s.SetMaxInactiveInterval(ctx, 60); err != nil {
		t.Fatal(err)
	}

	// The interval lands in the cache before any commit, so other instances
	// sharing the token pick it up right away.
	value, err := d.GetAttribute(ctx, "token-4", cacheExpireKey)
	if err != nil {
		t.Fatal(err)
	}
	if value != "60" {
		t.Errorf("got %v want 60", value)
	}

	other, err := New(ctx, d, "token-4", logger)
	if err != nil {
		t.Fatal(err)
	}
	if other.MaxInactiveInterval() != 60 {
		t.Errorf("got %v want 60", other.MaxInactiveInterval())
	}
}

func TestSessionPersistentAdoptedAsPersisted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, d := newTestSession(ctx, t, "token-5")
	if err := s.SetMaxInactiveInterval(ctx, PersistentInterval); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	// A later view of the same token must not persist again.
	other, err := New(ctx, d, "token-5", logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if d.persistCalls != 1 {
		t.Errorf("got %d persist calls want 1", d.persistCalls)
	}
}

func TestSessionLogoutURLOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, _ := newTestSession(ctx, t, "token-6")

	urls, err := s.LogoutURLs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 0 {
		t.Errorf("got %v want empty", urls)
	}

	for _, u := range []string{"https://a.example/cb", "https://b.example/cb", "https://a.example/cb"} {
		if err := s.AppendLogoutURL(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	urls, err = s.LogoutURLs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Insertion order is kept and duplicates stay.
	if len(urls) != 3 || urls[0] != "https://a.example/cb" || urls[1] != "https://b.example/cb" || urls[2] != "https://a.example/cb" {
		t.Errorf("unexpected logout URLs: %v", urls)
	}
}

func TestSessionInvalidate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, d := newTestSession(ctx, t, "token-7")
	if err := s.SetAttribute(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if d.delCalls != 1 {
		t.Errorf("got %d del calls want 1", d.delCalls)
	}

	if _, err := s.GetAttribute(ctx, "a"); err != ErrSessionInvalidated {
		t.Errorf("got %v want ErrSessionInvalidated", err)
	}
	if err := s.SetAttribute(ctx, "a", "2"); err != ErrSessionInvalidated {
		t.Errorf("got %v want ErrSessionInvalidated", err)
	}
	if err := s.Invalidate(ctx); err != ErrSessionInvalidated {
		t.Errorf("got %v want ErrSessionInvalidated", err)
	}

	// Commit of a destroyed session stays silent and touches nothing.
	if err := s.Commit(ctx); err != nil {
		t.Errorf("got %v want nil", err)
	}
	if d.expireCalls != 0 || d.persistCalls != 0 {
		t.Error("commit after invalidate must not touch the cache")
	}

	exists, err := d.Exists(ctx, "token-7")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("token should be gone after invalidate")
	}
}
