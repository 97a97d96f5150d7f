/*
Package resilience implements a circuit breaker for the storage node link.

# Overview

Pod operations cross the network on every fetch and sync. When the node is
down or degraded, letting each host call ride out its own timeout makes the
page unusable; the breaker rejects calls up front once failures accumulate
and lets a small probe budget test for recovery.

# Usage

	br := resilience.New("node", resilience.Options{
		Probes:   3,
		Cooldown: 30 * time.Second,
		TripAfter: func(s resilience.Stats) bool {
			return s.Streak >= 5
		},
	})

	err := br.Do(func() error {
		return backend.PutSlot(ctx, ref, chunk)
	})

# States

	Closed --[failures]-> Open --[cooldown]-> HalfOpen --[probes pass]-> Closed
	                                              |
	                                       [probe fails]
	                                              |
	                                              v
	                                            Open
*/
package resilience
