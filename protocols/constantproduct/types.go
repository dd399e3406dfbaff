package constantproduct

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Direction selects which reserve a swap reads as input and which as output.
type Direction uint8

const (
	Asset1ToAsset2 Direction = iota
	Asset2ToAsset1
)

func (d Direction) String() string {
	switch d {
	case Asset1ToAsset2:
		return "1to2"
	case Asset2ToAsset1:
		return "2to1"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == Asset1ToAsset2 || d == Asset2ToAsset1
}

// MarshalText lets directions travel as "1to2" / "2to1" in JSON and YAML.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	dir, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

// ParseDirection accepts "1to2" or "2to1".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "1to2":
		return Asset1ToAsset2, nil
	case "2to1":
		return Asset2ToAsset1, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want 1to2 or 2to1)", s)
	}
}

// Reserves returns (reserveIn, reserveOut) for a swap in direction d.
// The returned values alias the pool's fields and MUST NOT be modified.
func (p PoolState) Reserves(d Direction) (reserveIn, reserveOut *big.Int) {
	if d == Asset2ToAsset1 {
		return p.Reserve2, p.Reserve1
	}
	return p.Reserve1, p.Reserve2
}

// Assets returns (assetIn, assetOut) for a swap in direction d.
func (p PoolState) Assets(d Direction) (assetIn, assetOut common.Address) {
	if d == Asset2ToAsset1 {
		return p.Asset2, p.Asset1
	}
	return p.Asset1, p.Asset2
}

// SwapEvent is the record emitted for every completed swap.
type SwapEvent struct {
	ID            uuid.UUID      `json:"id"`
	Sequence      uint64         `json:"sequence"`
	Trader        common.Address `json:"trader"`
	InputAsset    common.Address `json:"inputAsset"`
	InputAmount   *big.Int       `json:"inputAmount"`
	OutputAsset   common.Address `json:"outputAsset"`
	OutputAmount  *big.Int       `json:"outputAmount"`
	Reserve1After *big.Int       `json:"reserve1After"`
	Reserve2After *big.Int       `json:"reserve2After"`
	Timestamp     uint64         `json:"timestamp"` // unix seconds
}
