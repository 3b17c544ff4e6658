// Package rating keeps Glicko-2 ratings for accounts, updated once per
// finished 1v1 match.
package rating

import (
	"math"

	"github.com/jason-s-yu/cardlink/internal/engine"
)

const (
	// GlickoScale converts between the 1500-based display scale and Glicko-2's mu.
	GlickoScale = 173.7178
	// DefaultRating is the rating of a new account.
	DefaultRating = 1500.0
	// DefaultDeviation is the rating deviation of a new account.
	DefaultDeviation = 350.0
	// DefaultVolatility is the volatility of a new account.
	DefaultVolatility = 0.06
	// Tau constrains volatility changes.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// Rating is an account's rating on the 1500-based scale.
type Rating struct {
	Value      float64 `json:"value"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
}

func Default() Rating {
	return Rating{Value: DefaultRating, Deviation: DefaultDeviation, Volatility: DefaultVolatility}
}

// Score maps a final play state, as carried by match events, to a Glicko
// score. ok is false for states that do not rate the match (the game never
// finished).
func Score(playState string) (score float64, ok bool) {
	switch playState {
	case engine.PlayStateWon.String():
		return 1, true
	case engine.PlayStateLost.String(), engine.PlayStateConceded.String():
		return 0, true
	case engine.PlayStateTied.String():
		return 0.5, true
	}
	return 0, false
}

// Update1v1 rates one match between a and b, where scoreA is a's result
// (1 win, 0.5 tie, 0 loss).
func Update1v1(a, b Rating, scoreA float64) (Rating, Rating) {
	ga, gb := toGlicko(a), toGlicko(b)
	na := update(ga, gb, scoreA)
	nb := update(gb, ga, 1-scoreA)
	return na.toRating(), nb.toRating()
}

type glicko struct {
	mu, phi, sigma float64
}

func toGlicko(r Rating) glicko {
	if r.Deviation <= 0 {
		r.Deviation = DefaultDeviation
	}
	if r.Volatility <= 0 {
		r.Volatility = DefaultVolatility
	}
	return glicko{
		mu:    (r.Value - DefaultRating) / GlickoScale,
		phi:   r.Deviation / GlickoScale,
		sigma: r.Volatility,
	}
}

func (g glicko) toRating() Rating {
	return Rating{
		Value:      g.mu*GlickoScale + DefaultRating,
		Deviation:  g.phi * GlickoScale,
		Volatility: g.sigma,
	}
}

func update(r, opp glicko, score float64) glicko {
	gOpp := gFactor(opp.phi)
	e := expected(r.mu, opp.mu, opp.phi)
	v := 1.0 / (gOpp * gOpp * e * (1 - e))
	delta := v * gOpp * (score - e)

	sigma := volatility(r, v, delta)
	phiStar := math.Sqrt(r.phi*r.phi + sigma*sigma)
	phi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	return glicko{
		mu:    r.mu + phi*phi*gOpp*(score-e),
		phi:   phi,
		sigma: sigma,
	}
}

// volatility solves for the new sigma with the Illinois variant of
// regula falsi.
func volatility(r glicko, v, delta float64) float64 {
	a := math.Log(r.sigma * r.sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := r.phi*r.phi + v + ex
		return ex*(delta*delta-r.phi*r.phi-v-ex)/(2*d*d) - (x-a)/(Tau*Tau)
	}

	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for f(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := f(A), f(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}

func gFactor(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

func expected(mu, muOpp, phiOpp float64) float64 {
	return 1.0 / (1.0 + math.Exp(-gFactor(phiOpp)*(mu-muOpp)))
}
