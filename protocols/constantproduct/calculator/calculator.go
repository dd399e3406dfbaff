package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
)

// PrecisionDecimals is the number of decimals in one whole unit of any pool amount.
const PrecisionDecimals = 18

// InitialShareWholeUnits is the number of whole shares minted by the first deposit.
const InitialShareWholeUnits = 100

// DefaultRatioToleranceDivisor is the divisor both candidate share counts are floored by
// before a non-first deposit's ratio is accepted.
const DefaultRatioToleranceDivisor = 1000

var (
	ten = big.NewInt(10)
	one = big.NewInt(1)

	// precision is 10^18 and MUST NOT be modified.
	precision = new(big.Int).Exp(ten, big.NewInt(PrecisionDecimals), nil)
	// initialShares is InitialShareWholeUnits * precision and MUST NOT be modified.
	initialShares = new(big.Int).Mul(big.NewInt(InitialShareWholeUnits), precision)

	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrEmptyPool is returned when an operation needs reserves the pool does not have.
	ErrEmptyPool = errors.New("pool has no reserves")
	// ErrInsufficientReserve is returned when an operation would fully drain a reserve.
	ErrInsufficientReserve = errors.New("insufficient reserve")
	// ErrRatioMismatch is returned when deposit amounts disagree with the current reserve ratio.
	ErrRatioMismatch = errors.New("deposit amounts do not match pool ratio")
	// ErrInsufficientShares is returned when more shares are requested than exist or are held.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrInvalidState is returned for internal calculation errors, like division by zero.
	ErrInvalidState = errors.New("invalid internal state")
	// ErrInvalidDirection is returned for an unknown swap direction.
	ErrInvalidDirection = errors.New("invalid swap direction")
)

// Precision returns a fresh copy of 10^18.
func Precision() *big.Int {
	return new(big.Int).Set(precision)
}

// InitialShareUnits returns a fresh copy of the share count minted by the first deposit.
func InitialShareUnits() *big.Int {
	return new(big.Int).Set(initialShares)
}

// Calculator holds reusable big.Int objects to avoid memory allocations during calculations.
// Instances of this struct are NOT safe for concurrent use by themselves.
// They are intended to be managed by the sync.Pool below.
type Calculator struct {
	// Reusable objects for getAmountOut
	newReserveIn  *big.Int
	newReserveOut *big.Int

	// Reusable objects for sharesForDeposit
	share1    *big.Int
	share2    *big.Int
	bucket1   *big.Int
	bucket2   *big.Int
	remainder *big.Int
}

var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			newReserveIn:  new(big.Int),
			newReserveOut: new(big.Int),
			share1:        new(big.Int),
			share2:        new(big.Int),
			bucket1:       new(big.Int),
			bucket2:       new(big.Int),
			remainder:     new(big.Int),
		}
	},
}

// GetAmountOut prices a swap of amountIn in direction d against the pool.
func GetAmountOut(amountIn *big.Int, d constantproduct.Direction, pool constantproduct.PoolState) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountOut(amountIn, d, pool)
}

// SimulateSwap prices a swap and returns the pool state it would produce.
// Reserves and K in the returned state are fresh allocations; the share map is shared with pool.
func SimulateSwap(amountIn *big.Int, d constantproduct.Direction, pool constantproduct.PoolState) (*big.Int, constantproduct.PoolState, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.simulateSwap(amountIn, d, pool)
}

// SharesForDeposit returns the shares a deposit of (amount1, amount2) would issue.
// toleranceDivisor must be positive; see DefaultRatioToleranceDivisor.
func SharesForDeposit(amount1, amount2, toleranceDivisor *big.Int, pool constantproduct.PoolState) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.sharesForDeposit(amount1, amount2, toleranceDivisor, pool)
}

// getAmountOut is the internal calculation method that uses the pre-allocated fields.
func (c *Calculator) getAmountOut(amountIn *big.Int, d constantproduct.Direction, pool constantproduct.PoolState) (*big.Int, error) {
	if err := checkPositive(amountIn); err != nil {
		return nil, err
	}
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, uint8(d))
	}

	reserveIn, reserveOut := pool.Reserves(d)
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	if pool.K == nil || pool.K.Sign() <= 0 {
		return nil, fmt.Errorf("%w: K is not positive", ErrInvalidState)
	}

	// newReserveOut = K / (reserveIn + amountIn), truncated. The truncation is the only spread;
	// it lowers the product by less than newReserveIn.
	c.newReserveIn.Add(reserveIn, amountIn)
	c.newReserveOut.Quo(pool.K, c.newReserveIn)

	amountOut := new(big.Int).Sub(reserveOut, c.newReserveOut)
	if amountOut.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative output", ErrInvalidState)
	}

	// A reserve must never reach exactly zero or K degenerates.
	if amountOut.Cmp(reserveOut) == 0 {
		amountOut.Sub(amountOut, one)
	}
	return amountOut, nil
}

func (c *Calculator) simulateSwap(amountIn *big.Int, d constantproduct.Direction, pool constantproduct.PoolState) (*big.Int, constantproduct.PoolState, error) {
	amountOut, err := c.getAmountOut(amountIn, d, pool)
	if err != nil {
		return nil, constantproduct.PoolState{}, err
	}

	next := pool
	if d == constantproduct.Asset1ToAsset2 {
		next.Reserve1 = new(big.Int).Add(pool.Reserve1, amountIn)
		next.Reserve2 = new(big.Int).Sub(pool.Reserve2, amountOut)
	} else {
		next.Reserve2 = new(big.Int).Add(pool.Reserve2, amountIn)
		next.Reserve1 = new(big.Int).Sub(pool.Reserve1, amountOut)
	}
	if next.Reserve1.Sign() <= 0 || next.Reserve2.Sign() <= 0 {
		return nil, constantproduct.PoolState{}, fmt.Errorf("%w: swap of %s would leave a reserve at zero", ErrInsufficientReserve, amountIn)
	}
	// K is recomputed, not assumed conserved: newReserveIn*floor(K/newReserveIn) is at most K.
	next.K = new(big.Int).Mul(next.Reserve1, next.Reserve2)

	return amountOut, next, nil
}

func (c *Calculator) sharesForDeposit(amount1, amount2, toleranceDivisor *big.Int, pool constantproduct.PoolState) (*big.Int, error) {
	if err := checkPositive(amount1); err != nil {
		return nil, err
	}
	if err := checkPositive(amount2); err != nil {
		return nil, err
	}

	if pool.IsEmpty() {
		// The first deposit fixes the price implicitly; issuance ignores magnitude.
		return InitialShareUnits(), nil
	}

	if toleranceDivisor == nil || toleranceDivisor.Sign() <= 0 {
		return nil, fmt.Errorf("%w: tolerance divisor must be positive", ErrInvalidState)
	}
	if pool.Reserve1.Sign() <= 0 || pool.Reserve2.Sign() <= 0 {
		return nil, fmt.Errorf("%w: shares outstanding against an empty reserve", ErrInvalidState)
	}

	c.share1.Mul(pool.TotalShares, amount1)
	c.share1.Quo(c.share1, pool.Reserve1)
	c.share2.Mul(pool.TotalShares, amount2)
	c.share2.Quo(c.share2, pool.Reserve2)

	c.bucket1.QuoRem(c.share1, toleranceDivisor, c.remainder)
	c.bucket2.QuoRem(c.share2, toleranceDivisor, c.remainder)
	if c.bucket1.Cmp(c.bucket2) != 0 {
		return nil, fmt.Errorf("%w: share1=%s share2=%s", ErrRatioMismatch, c.share1, c.share2)
	}
	if c.share1.Sign() == 0 {
		return nil, fmt.Errorf("%w: deposit too small to issue shares", ErrInvalidAmount)
	}

	return new(big.Int).Set(c.share1), nil
}

// AmountsForWithdraw returns the reserve slices redeemed by burning shares.
// Division truncates, so rounding always favors the pool.
func AmountsForWithdraw(shares *big.Int, pool constantproduct.PoolState) (amount1, amount2 *big.Int, err error) {
	if err := checkPositive(shares); err != nil {
		return nil, nil, err
	}
	if pool.IsEmpty() {
		return nil, nil, ErrEmptyPool
	}
	if shares.Cmp(pool.TotalShares) > 0 {
		return nil, nil, fmt.Errorf("%w: requested %s of %s total", ErrInsufficientShares, shares, pool.TotalShares)
	}

	amount1 = new(big.Int).Mul(pool.Reserve1, shares)
	amount1.Quo(amount1, pool.TotalShares)
	amount2 = new(big.Int).Mul(pool.Reserve2, shares)
	amount2.Quo(amount2, pool.TotalShares)
	return amount1, amount2, nil
}

// CounterpartDeposit returns how much of the other asset must accompany amount of the
// input-side asset of direction d to keep the current reserve ratio.
// With Asset1ToAsset2 it answers "given amount of asset 1, how much asset 2".
func CounterpartDeposit(amount *big.Int, d constantproduct.Direction, pool constantproduct.PoolState) (*big.Int, error) {
	if err := checkPositive(amount); err != nil {
		return nil, err
	}
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, uint8(d))
	}
	given, other := pool.Reserves(d)
	if given == nil || other == nil || given.Sign() <= 0 || other.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	out := new(big.Int).Mul(other, amount)
	return out.Quo(out, given), nil
}

// SpotPrice returns reserveOut * 10^18 / reserveIn: the marginal price of one whole input
// unit in output units, scaled by the pool precision.
func SpotPrice(d constantproduct.Direction, pool constantproduct.PoolState) (*big.Int, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, uint8(d))
	}
	reserveIn, reserveOut := pool.Reserves(d)
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	price := new(big.Int).Mul(reserveOut, precision)
	return price.Quo(price, reserveIn), nil
}

func checkPositive(amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, ErrNilAmount)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	return nil
}
