// Package ratelimit gatekeeps every route group with per-key token
// buckets. The default backend keeps buckets in a sharded in-process map;
// a Redis fixed-window backend is available for multi-instance
// deployments.
package ratelimit

import (
	"context"
	"time"
)

// Class selects the preset for a route group.
type Class string

const (
	ClassAuth      Class = "auth"
	ClassDataRead  Class = "data-read"
	ClassDataWrite Class = "data-write"
	ClassStorage   Class = "storage"
	ClassNotify    Class = "notify"
)

// Preset is the bucket configuration of one route class.
type Preset struct {
	MaxRequests int
	Window      time.Duration
}

var presets = map[Class]Preset{
	ClassAuth:      {MaxRequests: 10, Window: time.Minute},
	ClassDataRead:  {MaxRequests: 100, Window: time.Minute},
	ClassDataWrite: {MaxRequests: 30, Window: time.Minute},
	ClassStorage:   {MaxRequests: 10, Window: time.Minute},
	ClassNotify:    {MaxRequests: 5, Window: time.Minute},
}

// PresetFor returns the preset of a class; unknown classes get the most
// restrictive one.
func PresetFor(class Class) Preset {
	if p, ok := presets[class]; ok {
		return p
	}
	return presets[ClassNotify]
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Limiter admits or rejects one request for the given key and route
// class. Rejection is never retried internally; callers surface a
// RATE_LIMITED error with the retry hint.
type Limiter interface {
	Admit(ctx context.Context, key string, class Class) (Decision, error)
}
