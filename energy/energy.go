// Package energy implements the watch-energy recharge model.
//
// A user holds at most MaxEnergy units. One unit regenerates every
// RechargeInterval; marking a title as watched consumes one unit.
package energy

import "time"

const (
	// MaxEnergy is the number of units a fully charged user holds.
	MaxEnergy = 3

	// RechargeInterval is the time needed to regenerate one unit.
	RechargeInterval = 6 * time.Hour
)

// intervalSeconds is RechargeInterval in epoch seconds.
const intervalSeconds = int64(RechargeInterval / time.Second)

// Recharge computes the energy a user holds at now, given the stored value and the
// timestamp of the last recharge (epoch seconds, 0 when never recorded).
//
// When the result is full the clock resets to now; otherwise the timestamp only moves
// forward by whole intervals so partial progress toward the next unit is kept.
func Recharge(current int, lastRecharge, now int64) (int, int64) {
	current = clamp(current)
	if lastRecharge <= 0 {
		lastRecharge = now
	}

	elapsed := now - lastRecharge
	if elapsed < 0 {
		// clock skew: never move the timestamp backwards
		elapsed = 0
	}

	units := elapsed / intervalSeconds
	next := current + int(min(units, MaxEnergy))
	if next >= MaxEnergy {
		return MaxEnergy, max(now, lastRecharge)
	}
	return next, lastRecharge + units*intervalSeconds
}

// NextRecharge returns the epoch second at which the next unit regenerates.
func NextRecharge(rechargeTS int64) int64 {
	return rechargeTS + intervalSeconds
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxEnergy {
		return MaxEnergy
	}
	return v
}
