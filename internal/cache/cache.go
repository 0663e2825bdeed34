// Package cache stores rendered projection responses keyed by their inputs.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/makey/solar-forecast/internal/projection"
)

// Cache is a string key-value store for computed responses.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string) error
}

// Key identifies a projection by its inputs and program parameters.
func Key(in projection.Inputs, params projection.Parameters) string {
	parts := []string{
		"projection",
		formatKeyFloat(in.MonthlyCostNow),
		formatKeyFloat(in.AnnualInflationPercent),
		formatKeyFloat(in.TotalSystemCost),
		formatKeyFloat(params.SubsidyRate),
		formatKeyFloat(params.SavingsRate),
		strconv.Itoa(params.HorizonYears),
	}
	return strings.Join(parts, ":")
}

func formatKeyFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Memory is an in-process Cache holding at most maxEntries values. When full,
// it is emptied before the next insertion.
type Memory struct {
	mu         sync.RWMutex
	data       map[string]string
	maxEntries int
}

// NewMemory returns an empty in-memory cache. A non-positive maxEntries means unbounded.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		data:       make(map[string]string),
		maxEntries: maxEntries,
	}
}

// Get returns the cached value for key.
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok
}

// Set stores value under key.
func (m *Memory) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; !exists && m.maxEntries > 0 && len(m.data) >= m.maxEntries {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

// Len returns the number of cached values.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
