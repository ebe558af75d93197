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
	"os"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/cache"
)

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{DisableColors: true},
	Level:     logrus.DebugLevel,
}

func TestMemoryDaoAttributes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewMemoryDao(ctx)

	if _, err := d.GetAttribute(ctx, "token-1", "a"); err != cache.ErrNoSuchAttribute {
		t.Errorf("got %v want ErrNoSuchAttribute", err)
	}

	if err := d.SetAttribute(ctx, "token-1", "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetAttribute(ctx, "token-1", "b", "2"); err != nil {
		t.Fatal(err)
	}

	value, err := d.GetAttribute(ctx, "token-1", "a")
	if err != nil {
		t.Fatal(err)
	}
	if value != "1" {
		t.Errorf("got %v want 1", value)
	}

	names, err := d.AttributeNames(ctx, "token-1")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected attribute names: %v", names)
	}

	exists, err := d.Exists(ctx, "token-1")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("token should exist")
	}

	if err := d.Del(ctx, "token-1"); err != nil {
		t.Fatal(err)
	}
	exists, _ = d.Exists(ctx, "token-1")
	if exists {
		t.Error("token should be gone after delete")
	}
}

func TestMemoryDaoExpire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewMemoryDao(ctx)

	if err := d.SetAttribute(ctx, "token-2", "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetExpire(ctx, "token-2", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)

	exists, err := d.Exists(ctx, "token-2")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("token should have expired")
	}
	if _, err := d.GetAttribute(ctx, "token-2", "a"); err != cache.ErrNoSuchAttribute {
		t.Errorf("got %v want ErrNoSuchAttribute", err)
	}
}

func TestMemoryDaoPersistClearsExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewMemoryDao(ctx)

	if err := d.SetAttribute(ctx, "token-3", "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetExpire(ctx, "token-3", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := d.SetPersist(ctx, "token-3"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)

	exists, err := d.Exists(ctx, "token-3")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("persisted token should not expire")
	}
}
