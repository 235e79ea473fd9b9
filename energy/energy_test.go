package energy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const hour = int64(time.Hour / time.Second)

func TestRecharge_Scenarios(t *testing.T) {
	now := int64(1_700_000_000)

	tests := []struct {
		name       string
		current    int
		last       int64
		wantEnergy int
		wantTS     int64
	}{
		{"one unit keeps remainder", 1, now - 7*hour, 2, now - 1*hour},
		{"overflow resets clock", 2, now - 13*hour, 3, now},
		{"no partial units", 1, now - 5*hour, 1, now - 5*hour},
		{"missing timestamp is now", 0, 0, 0, now},
		{"already full resets clock", 3, now - 1*hour, 3, now},
		{"empty for exactly one interval", 0, now - 6*hour, 1, now},
		{"empty for a long time", 0, now - 1000*hour, 3, now},
		{"clock skew keeps timestamp", 1, now + 2*hour, 1, now + 2*hour},
		{"negative input clamps", -4, now - 6*hour, 1, now},
		{"oversized input clamps", 9, now, 3, now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotEnergy, gotTS := Recharge(tt.current, tt.last, now)
			assert.Equal(t, tt.wantEnergy, gotEnergy)
			assert.Equal(t, tt.wantTS, gotTS)
		})
	}
}

func TestRecharge_StaysInBounds(t *testing.T) {
	now := int64(1_700_000_000)
	for current := 0; current <= MaxEnergy; current++ {
		for elapsed := int64(0); elapsed <= 40*hour; elapsed += 17 * 60 {
			got, ts := Recharge(current, now-elapsed, now)
			if got < 0 || got > MaxEnergy {
				t.Fatalf("Recharge(%d, -%ds) = %d, out of bounds", current, elapsed, got)
			}
			if ts > now {
				t.Fatalf("Recharge(%d, -%ds) timestamp %d is in the future", current, elapsed, ts)
			}
			if elapsed < 6*hour && current < MaxEnergy && got != current {
				t.Fatalf("Recharge(%d, -%ds) = %d, gained a partial unit", current, elapsed, got)
			}
		}
	}
}

func TestRecharge_TimestampMonotonic(t *testing.T) {
	start := int64(1_700_000_000)
	energy, ts := 0, start
	prev := ts

	for now := start; now <= start+48*hour; now += 37 * 60 {
		energy, ts = Recharge(energy, ts, now)
		if ts < prev {
			t.Fatalf("timestamp went backwards at now=%d: %d < %d", now, ts, prev)
		}
		prev = ts
		// spend whenever possible to keep the clock moving through partial states
		if energy > 0 && (now/hour)%5 == 0 {
			energy--
		}
	}
}

func TestNextRecharge(t *testing.T) {
	assert.Equal(t, int64(100+6*hour), NextRecharge(100))
}
