// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package localcache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemory creates an empty in-memory namespace.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrMiss
	}
	return clone(v), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.values[key] = clone(value)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Update(_ context.Context, key string, fn func([]byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(clone(m.values[key]))
	if err != nil {
		return err
	}
	if next == nil {
		delete(m.values, key)
		return nil
	}
	m.values[key] = clone(next)
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	clear(m.values)
	m.mu.Unlock()
	return nil
}

// sweepEvery bounds how often MemoryPool scans for idle namespaces.
const sweepEvery = time.Hour

type pooledMemory struct {
	mem      *Memory
	lastUsed time.Time
}

// MemoryPool hands out one Memory per namespace, for running without Valkey.
// Namespaces unused for longer than the idle TTL are dropped.
type MemoryPool struct {
	mu        sync.Mutex
	spaces    map[string]*pooledMemory
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryPool creates an empty pool that drops namespaces idle for
// longer than idle. A zero idle keeps them forever.
func NewMemoryPool(idle time.Duration) *MemoryPool {
	return &MemoryPool{
		spaces: make(map[string]*pooledMemory),
		idle:   idle,
		now:    time.Now,
	}
}

// Namespace returns the store for ns, creating it on first use.
func (p *MemoryPool) Namespace(ns string) Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if p.idle > 0 && now.Sub(p.lastSweep) >= min(sweepEvery, p.idle) {
		p.sweep(now)
	}
	e, ok := p.spaces[ns]
	if !ok {
		e = &pooledMemory{mem: NewMemory()}
		p.spaces[ns] = e
	}
	e.lastUsed = now
	return e.mem
}

// Len reports how many namespaces the pool holds.
func (p *MemoryPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.spaces)
}

func (p *MemoryPool) sweep(now time.Time) {
	for ns, e := range p.spaces {
		if now.Sub(e.lastUsed) > p.idle {
			delete(p.spaces, ns)
		}
	}
	p.lastSweep = now
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
