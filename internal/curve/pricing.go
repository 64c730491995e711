// internal/curve/pricing.go
package curve

import (
	"fmt"

	"github.com/holiman/uint256"
)

// QuoteBuy returns the tokens released for solIn against the given effective
// reserves using the constant-product invariant k = sol * token.
//
// All intermediates are 256-bit and the division floors, so the curve keeps
// any rounding remainder.
func QuoteBuy(solIn, solReserves, tokenReserves uint64) (uint64, error) {
	return quote(solIn, solReserves, tokenReserves)
}

// QuoteSell returns the SOL released for tokenIn. Same invariant as QuoteBuy
// with the reserve roles swapped.
func QuoteSell(tokenIn, solReserves, tokenReserves uint64) (uint64, error) {
	return quote(tokenIn, tokenReserves, solReserves)
}

// quote computes out = outReserve - floor(inReserve*outReserve / (inReserve+amountIn)).
func quote(amountIn, inReserve, outReserve uint64) (uint64, error) {
	if inReserve == 0 || outReserve == 0 {
		return 0, fmt.Errorf("%w: zero reserve (in=%d, out=%d)", ErrInvalidComputation, inReserve, outReserve)
	}

	in := uint256.NewInt(inReserve)
	out := uint256.NewInt(outReserve)

	k := new(uint256.Int).Mul(in, out)
	newIn := new(uint256.Int).Add(in, uint256.NewInt(amountIn))
	newOut := new(uint256.Int).Div(k, newIn)

	// newIn >= in, so newOut <= out and the subtraction cannot wrap.
	delta, underflow := new(uint256.Int).SubOverflow(out, newOut)
	if underflow || !delta.IsUint64() {
		return 0, fmt.Errorf("%w: reserve delta out of range", ErrInvalidComputation)
	}
	if delta.IsZero() {
		return 0, fmt.Errorf("%w: amount %d rounds to zero output", ErrInvalidComputation, amountIn)
	}
	return delta.Uint64(), nil
}

// mulDivFloor returns floor(a*b/d) computed in 256 bits. d must be non-zero.
func mulDivFloor(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrInvalidComputation)
	}
	r := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	r.Div(r, uint256.NewInt(d))
	if !r.IsUint64() {
		return 0, fmt.Errorf("%w: %d*%d/%d overflows u64", ErrInvalidComputation, a, b, d)
	}
	return r.Uint64(), nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	s := a + b
	if s < a {
		return 0, fmt.Errorf("%w: %d + %d overflows u64", ErrInvalidComputation, a, b)
	}
	return s, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d underflows", ErrInvalidComputation, a, b)
	}
	return a - b, nil
}
