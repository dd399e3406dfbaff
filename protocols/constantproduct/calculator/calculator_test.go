package calculator

import (
	"math/big"
	"testing"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBigIntFromString is a helper function to create a big.Int from a string,
// which is necessary for numbers larger than a standard int64.
func newBigIntFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("failed to set string for big.Int")
	}
	return n
}

// tokens scales whole units by 10^18.
func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Precision())
}

var poolHolder = common.HexToAddress("0x0A")

// newPool builds a consistent pool state from reserves and total shares. A single holder
// owns every outstanding share.
func newPool(reserve1, reserve2, totalShares *big.Int) constantproduct.PoolState {
	p := constantproduct.NewPoolState(common.HexToAddress("0x01"), common.HexToAddress("0x02"))
	p.Reserve1 = reserve1
	p.Reserve2 = reserve2
	p.K = new(big.Int).Mul(reserve1, reserve2)
	p.TotalShares = totalShares
	if totalShares.Sign() > 0 {
		p.Shares[poolHolder] = new(big.Int).Set(totalShares)
	}
	return p
}

func TestGetAmountOut(t *testing.T) {
	testCases := []struct {
		name           string
		amountIn       *big.Int
		direction      constantproduct.Direction
		pool           constantproduct.PoolState
		expectedAmount *big.Int
		expectedErr    error
	}{
		{
			name:           "Scaled Swap (Asset1 -> Asset2)",
			amountIn:       tokens(1),
			direction:      constantproduct.Asset1ToAsset2,
			pool:           newPool(tokens(100000), tokens(100000), tokens(100)),
			expectedAmount: newBigIntFromString("999990000099999001"),
		},
		{
			name:           "Scaled Swap After Second Deposit",
			amountIn:       tokens(1),
			direction:      constantproduct.Asset2ToAsset1,
			pool:           newPool(tokens(150000), tokens(150000), tokens(150)),
			expectedAmount: newBigIntFromString("999993333377777482"),
		},
		{
			name:           "Small Integer Swap (Asset2 -> Asset1)",
			amountIn:       big.NewInt(10),
			direction:      constantproduct.Asset2ToAsset1,
			pool:           newPool(big.NewInt(1000), big.NewInt(1000), big.NewInt(1)),
			expectedAmount: big.NewInt(10),
		},
		{
			name:           "Drain Guard Leaves One Unit",
			amountIn:       big.NewInt(1_000_000),
			direction:      constantproduct.Asset1ToAsset2,
			pool:           newPool(big.NewInt(1000), big.NewInt(1000), big.NewInt(1)),
			expectedAmount: big.NewInt(999),
		},
		{
			name:        "Empty Pool",
			amountIn:    big.NewInt(10),
			direction:   constantproduct.Asset1ToAsset2,
			pool:        newPool(big.NewInt(0), big.NewInt(0), big.NewInt(0)),
			expectedErr: ErrEmptyPool,
		},
		{
			name:        "Invalid Input: Nil AmountIn",
			amountIn:    nil,
			direction:   constantproduct.Asset1ToAsset2,
			pool:        newPool(big.NewInt(1000), big.NewInt(1000), big.NewInt(1)),
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "Invalid Input: Zero AmountIn",
			amountIn:    big.NewInt(0),
			direction:   constantproduct.Asset1ToAsset2,
			pool:        newPool(big.NewInt(1000), big.NewInt(1000), big.NewInt(1)),
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "Invalid Input: Negative AmountIn",
			amountIn:    big.NewInt(-100),
			direction:   constantproduct.Asset1ToAsset2,
			pool:        newPool(big.NewInt(1000), big.NewInt(1000), big.NewInt(1)),
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "Invalid Direction",
			amountIn:    big.NewInt(10),
			direction:   constantproduct.Direction(7),
			pool:        newPool(big.NewInt(1000), big.NewInt(1000), big.NewInt(1)),
			expectedErr: ErrInvalidDirection,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amountOut, err := GetAmountOut(tc.amountIn, tc.direction, tc.pool)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, amountOut)
			assert.Zero(t, tc.expectedAmount.Cmp(amountOut), "Expected %s, but got %s", tc.expectedAmount.String(), amountOut.String())
		})
	}
}

func TestGetAmountOut_DoesNotMutatePool(t *testing.T) {
	pool := newPool(tokens(100000), tokens(100000), tokens(100))
	before := pool.DeepCopy()

	_, err := GetAmountOut(tokens(5), constantproduct.Asset1ToAsset2, pool)
	require.NoError(t, err)

	assert.Equal(t, before, pool)
}

func TestSimulateSwap(t *testing.T) {
	t.Run("Reserves Move And K Stays Within Truncation", func(t *testing.T) {
		pool := newPool(tokens(100000), tokens(100000), tokens(100))

		amountOut, next, err := SimulateSwap(tokens(1), constantproduct.Asset1ToAsset2, pool)
		require.NoError(t, err)

		assert.Zero(t, next.Reserve1.Cmp(tokens(100001)))
		assert.Zero(t, next.Reserve2.Cmp(new(big.Int).Sub(tokens(100000), amountOut)))
		assert.Zero(t, next.K.Cmp(new(big.Int).Mul(next.Reserve1, next.Reserve2)))
		// K' = newRin*floor(K/newRin), so K - newRin < K' <= K.
		assert.LessOrEqual(t, next.K.Cmp(pool.K), 0, "K must not grow")
		lower := new(big.Int).Sub(pool.K, next.Reserve1)
		assert.Equal(t, 1, next.K.Cmp(lower), "K must lose less than the new input reserve")
		require.NoError(t, next.Validate())

		// The input state is untouched.
		assert.Zero(t, pool.Reserve1.Cmp(tokens(100000)))
		assert.Zero(t, pool.Reserve2.Cmp(tokens(100000)))
	})

	t.Run("Drain Guard Keeps Opposite Reserve Positive", func(t *testing.T) {
		pool := newPool(big.NewInt(10), big.NewInt(10), big.NewInt(1))

		amountOut, next, err := SimulateSwap(big.NewInt(1000), constantproduct.Asset2ToAsset1, pool)
		require.NoError(t, err)

		assert.Equal(t, int64(9), amountOut.Int64())
		assert.Equal(t, int64(1), next.Reserve1.Int64())
		assert.Equal(t, int64(1010), next.Reserve2.Int64())
	})

	t.Run("Error Propagates", func(t *testing.T) {
		pool := newPool(big.NewInt(0), big.NewInt(0), big.NewInt(0))
		_, _, err := SimulateSwap(big.NewInt(1), constantproduct.Asset1ToAsset2, pool)
		assert.ErrorIs(t, err, ErrEmptyPool)
	})
}

func TestSharesForDeposit(t *testing.T) {
	tolerance := big.NewInt(DefaultRatioToleranceDivisor)
	unitPool := newPool(tokens(100), tokens(100), tokens(100))

	testCases := []struct {
		name           string
		amount1        *big.Int
		amount2        *big.Int
		pool           constantproduct.PoolState
		expectedShares *big.Int
		expectedErr    error
	}{
		{
			name:           "First Deposit Issues Initial Units",
			amount1:        tokens(100000),
			amount2:        tokens(100000),
			pool:           newPool(big.NewInt(0), big.NewInt(0), big.NewInt(0)),
			expectedShares: tokens(100),
		},
		{
			name:           "First Deposit Ignores Magnitude",
			amount1:        big.NewInt(1),
			amount2:        big.NewInt(1),
			pool:           newPool(big.NewInt(0), big.NewInt(0), big.NewInt(0)),
			expectedShares: tokens(100),
		},
		{
			name:           "First Deposit Ignores Ratio",
			amount1:        big.NewInt(1),
			amount2:        tokens(7),
			pool:           newPool(big.NewInt(0), big.NewInt(0), big.NewInt(0)),
			expectedShares: tokens(100),
		},
		{
			name:           "Proportional Deposit",
			amount1:        tokens(50000),
			amount2:        tokens(50000),
			pool:           newPool(tokens(100000), tokens(100000), tokens(100)),
			expectedShares: tokens(50),
		},
		{
			name:           "Within Tolerance Bucket",
			amount1:        big.NewInt(5000),
			amount2:        big.NewInt(5999),
			pool:           unitPool,
			expectedShares: big.NewInt(5000),
		},
		{
			name:        "Crosses Tolerance Bucket Upwards",
			amount1:     big.NewInt(5000),
			amount2:     big.NewInt(6000),
			pool:        unitPool,
			expectedErr: ErrRatioMismatch,
		},
		{
			name:        "Crosses Tolerance Bucket Downwards",
			amount1:     big.NewInt(4999),
			amount2:     big.NewInt(5000),
			pool:        unitPool,
			expectedErr: ErrRatioMismatch,
		},
		{
			name:        "Ratio Mismatch",
			amount1:     tokens(50000),
			amount2:     tokens(40000),
			pool:        newPool(tokens(100000), tokens(100000), tokens(100)),
			expectedErr: ErrRatioMismatch,
		},
		{
			name:        "Dust Deposit Issues Nothing",
			amount1:     big.NewInt(1),
			amount2:     big.NewInt(1),
			pool:        newPool(tokens(100000), tokens(100000), big.NewInt(100)),
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "Zero Amount",
			amount1:     big.NewInt(0),
			amount2:     big.NewInt(10),
			pool:        unitPool,
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "Nil Amount",
			amount1:     big.NewInt(10),
			amount2:     nil,
			pool:        unitPool,
			expectedErr: ErrNilAmount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			shares, err := SharesForDeposit(tc.amount1, tc.amount2, tolerance, tc.pool)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Zero(t, tc.expectedShares.Cmp(shares), "Expected %s, but got %s", tc.expectedShares, shares)
		})
	}

	t.Run("Custom Tolerance Divisor", func(t *testing.T) {
		// A divisor of one demands exact agreement.
		_, err := SharesForDeposit(big.NewInt(5000), big.NewInt(5001), big.NewInt(1), unitPool)
		assert.ErrorIs(t, err, ErrRatioMismatch)

		shares, err := SharesForDeposit(big.NewInt(5000), big.NewInt(5000), big.NewInt(1), unitPool)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), shares.Int64())
	})

	t.Run("Non Positive Tolerance Divisor", func(t *testing.T) {
		_, err := SharesForDeposit(big.NewInt(5000), big.NewInt(5000), big.NewInt(0), unitPool)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestAmountsForWithdraw(t *testing.T) {
	testCases := []struct {
		name        string
		shares      *big.Int
		pool        constantproduct.PoolState
		expected1   int64
		expected2   int64
		expectedErr error
	}{
		{
			name:      "Proportional Slice",
			shares:    big.NewInt(50),
			pool:      newPool(big.NewInt(300), big.NewInt(600), big.NewInt(150)),
			expected1: 100,
			expected2: 200,
		},
		{
			name:      "Truncation Favors Pool",
			shares:    big.NewInt(1),
			pool:      newPool(big.NewInt(100), big.NewInt(200), big.NewInt(3)),
			expected1: 33,
			expected2: 66,
		},
		{
			name:      "Full Withdrawal Returns Everything",
			shares:    big.NewInt(3),
			pool:      newPool(big.NewInt(100), big.NewInt(200), big.NewInt(3)),
			expected1: 100,
			expected2: 200,
		},
		{
			name:        "More Than Total",
			shares:      big.NewInt(4),
			pool:        newPool(big.NewInt(100), big.NewInt(200), big.NewInt(3)),
			expectedErr: ErrInsufficientShares,
		},
		{
			name:        "Empty Pool",
			shares:      big.NewInt(1),
			pool:        newPool(big.NewInt(0), big.NewInt(0), big.NewInt(0)),
			expectedErr: ErrEmptyPool,
		},
		{
			name:        "Zero Shares",
			shares:      big.NewInt(0),
			pool:        newPool(big.NewInt(100), big.NewInt(200), big.NewInt(3)),
			expectedErr: ErrInvalidAmount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amount1, amount2, err := AmountsForWithdraw(tc.shares, tc.pool)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected1, amount1.Int64())
			assert.Equal(t, tc.expected2, amount2.Int64())
		})
	}
}

func TestCounterpartDeposit(t *testing.T) {
	pool := newPool(big.NewInt(1000), big.NewInt(3000), big.NewInt(1))

	amount2, err := CounterpartDeposit(big.NewInt(10), constantproduct.Asset1ToAsset2, pool)
	require.NoError(t, err)
	assert.Equal(t, int64(30), amount2.Int64())

	amount1, err := CounterpartDeposit(big.NewInt(10), constantproduct.Asset2ToAsset1, pool)
	require.NoError(t, err)
	assert.Equal(t, int64(3), amount1.Int64())

	_, err = CounterpartDeposit(big.NewInt(10), constantproduct.Asset1ToAsset2, newPool(big.NewInt(0), big.NewInt(0), big.NewInt(0)))
	assert.ErrorIs(t, err, ErrEmptyPool)

	_, err = CounterpartDeposit(big.NewInt(0), constantproduct.Asset1ToAsset2, pool)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSpotPrice(t *testing.T) {
	pool := newPool(tokens(100), tokens(250), tokens(100))

	price, err := SpotPrice(constantproduct.Asset1ToAsset2, pool)
	require.NoError(t, err)
	assert.Zero(t, newBigIntFromString("2500000000000000000").Cmp(price))

	price, err = SpotPrice(constantproduct.Asset2ToAsset1, pool)
	require.NoError(t, err)
	assert.Zero(t, newBigIntFromString("400000000000000000").Cmp(price))

	_, err = SpotPrice(constantproduct.Asset1ToAsset2, newPool(big.NewInt(0), big.NewInt(0), big.NewInt(0)))
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestConstantsAreNotShared(t *testing.T) {
	p := Precision()
	p.SetInt64(7)
	assert.Zero(t, newBigIntFromString("1000000000000000000").Cmp(Precision()))

	s := InitialShareUnits()
	s.SetInt64(7)
	assert.Zero(t, tokens(100).Cmp(InitialShareUnits()))
}
