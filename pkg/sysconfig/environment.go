/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sysconfig

import (
	"os"
	"sync"
)

// Environment is the process-wide key/value state the loader hydrates.
type Environment interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
}

// OSEnvironment is the real process environment.
type OSEnvironment struct{}

// Lookup implements Environment.
func (OSEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Set implements Environment.
func (OSEnvironment) Set(key, value string) error {
	return os.Setenv(key, value)
}

// MapEnvironment is an in-memory Environment.
type MapEnvironment struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapEnvironment returns a MapEnvironment seeded with a copy of initial.
func NewMapEnvironment(initial map[string]string) *MapEnvironment {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MapEnvironment{values: values}
}

// Lookup implements Environment.
func (e *MapEnvironment) Lookup(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[key]
	return v, ok
}

// Set implements Environment.
func (e *MapEnvironment) Set(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = value
	return nil
}
