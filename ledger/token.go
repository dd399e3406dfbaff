package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
	// ErrOverflow is returned when an amount or a resulting balance does not fit in 256 bits.
	ErrOverflow = errors.New("amount overflows uint256")
	// ErrInsufficientBalance is returned when an account cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a spender exceeds its approved allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Metadata describes a token. Only display code reads Decimals; balances are raw units.
type Metadata struct {
	Address  common.Address `json:"address" yaml:"address"`
	Name     string         `json:"name" yaml:"name"`
	Symbol   string         `json:"symbol" yaml:"symbol"`
	Decimals uint8          `json:"decimals" yaml:"decimals"`
}

// Token is a concurrency-safe, in-memory fungible token with balances and allowances.
// All arithmetic is 256-bit and overflow-checked.
type Token struct {
	meta Metadata

	mu          sync.RWMutex
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
}

// NewToken creates a token with zero supply.
func NewToken(meta Metadata) *Token {
	return &Token{
		meta:        meta,
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

func (t *Token) Metadata() Metadata {
	return t.meta
}

func (t *Token) Address() common.Address {
	return t.meta.Address
}

// Mint creates amount new units owned by to.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(t.totalSupply, v)
	if overflow {
		return fmt.Errorf("%w: total supply", ErrOverflow)
	}
	balance, overflow := new(uint256.Int).AddOverflow(t.balanceOf(to), v)
	if overflow {
		return fmt.Errorf("%w: balance of %s", ErrOverflow, to.Hex())
	}
	t.totalSupply = supply
	t.balances[to] = balance
	return nil
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkTransfer(from, to, v); err != nil {
		return err
	}
	t.move(from, to, v)
	return nil
}

// Approve sets the amount spender may move out of owner's balance.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	approved, ok := t.allowances[owner]
	if !ok {
		approved = make(map[common.Address]*uint256.Int)
		t.allowances[owner] = approved
	}
	approved[spender] = v
	return nil
}

// TransferFrom moves amount from one account to another on behalf of spender,
// consuming spender's allowance.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkTransferFrom(spender, from, to, v); err != nil {
		return err
	}
	allowance := t.allowance(from, spender)
	t.allowances[from][spender] = new(uint256.Int).Sub(allowance, v)
	t.move(from, to, v)
	return nil
}

// BalanceOf returns the balance of account.
func (t *Token) BalanceOf(account common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceOf(account).ToBig()
}

// Allowance returns what spender may still move out of owner's balance.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowance(owner, spender).ToBig()
}

func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply.ToBig()
}

// --- internal helpers; callers hold t.mu ---

func (t *Token) balanceOf(account common.Address) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return new(uint256.Int)
}

func (t *Token) allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return a
	}
	return new(uint256.Int)
}

func (t *Token) checkTransfer(from, to common.Address, v *uint256.Int) error {
	balance := t.balanceOf(from)
	if balance.Lt(v) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), balance.Dec(), v.Dec())
	}
	if from != to {
		if _, overflow := new(uint256.Int).AddOverflow(t.balanceOf(to), v); overflow {
			return fmt.Errorf("%w: balance of %s", ErrOverflow, to.Hex())
		}
	}
	return nil
}

func (t *Token) checkTransferFrom(spender, from, to common.Address, v *uint256.Int) error {
	allowance := t.allowance(from, spender)
	if allowance.Lt(v) {
		return fmt.Errorf("%w: %s may move %s of %s, needs %s", ErrInsufficientAllowance, spender.Hex(), allowance.Dec(), from.Hex(), v.Dec())
	}
	return t.checkTransfer(from, to, v)
}

func (t *Token) move(from, to common.Address, v *uint256.Int) {
	if from == to {
		return
	}
	t.balances[from] = new(uint256.Int).Sub(t.balanceOf(from), v)
	t.balances[to] = new(uint256.Int).Add(t.balanceOf(to), v)
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, amount)
	}
	return v, nil
}
