package rating

import (
	"testing"

	"github.com/jason-s-yu/cardlink/internal/engine"
	"github.com/stretchr/testify/assert"
)

func TestUpdate1v1(t *testing.T) {
	winner, loser := Update1v1(Default(), Default(), 1)

	assert.Greater(t, winner.Value, DefaultRating, "winner's rating should go up")
	assert.Less(t, loser.Value, DefaultRating, "loser's rating should go down")
	assert.InDelta(t, winner.Value-DefaultRating, DefaultRating-loser.Value, 0.001)
	assert.Less(t, winner.Deviation, DefaultDeviation)
}

func TestUpdate1v1Tie(t *testing.T) {
	a, b := Update1v1(Default(), Default(), 0.5)
	assert.InDelta(t, DefaultRating, a.Value, 0.001)
	assert.InDelta(t, DefaultRating, b.Value, 0.001)
}

// Matches the worked example of the Glicko-2 paper for the volatility step.
func TestVolatilityExample(t *testing.T) {
	r := toGlicko(Rating{Value: 1500, Deviation: 200, Volatility: 0.06})
	assert.InDelta(t, 0.05999, volatility(r, 1.7785, -0.4834), 0.0001)
}

func TestScore(t *testing.T) {
	for state, want := range map[engine.PlayState]float64{
		engine.PlayStateWon:      1,
		engine.PlayStateLost:     0,
		engine.PlayStateConceded: 0,
		engine.PlayStateTied:     0.5,
	} {
		got, ok := Score(state.String())
		assert.True(t, ok, state.String())
		assert.Equal(t, want, got, state.String())
	}
	_, ok := Score(engine.PlayStatePlaying.String())
	assert.False(t, ok)
	_, ok = Score("Won")
	assert.False(t, ok)
}
