package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrCustodySource is returned when the custody account is asked to pay itself into custody.
var ErrCustodySource = errors.New("custody account cannot be the source of a pull")

// Custody lets a pool move one Token in and out of the account that holds its reserves.
// Pulls spend the allowance owners granted to the custody account, the way a pool contract
// calls transferFrom after the owner approved it.
type Custody struct {
	token   *Token
	account common.Address
}

// NewCustody binds token to the custody account.
func NewCustody(token *Token, account common.Address) *Custody {
	return &Custody{token: token, account: account}
}

// Asset returns the token address.
func (c *Custody) Asset() common.Address {
	return c.token.Address()
}

// Account returns the custody account holding the pool's reserves.
func (c *Custody) Account() common.Address {
	return c.account
}

// Pull moves amount from into custody, spending from's allowance for the custody account.
// The custody account cannot fund itself.
func (c *Custody) Pull(from common.Address, amount *big.Int) error {
	if from == c.account {
		return fmt.Errorf("%w: %s", ErrCustodySource, from.Hex())
	}
	return c.token.TransferFrom(c.account, from, c.account, amount)
}

// Push moves amount out of custody to to.
func (c *Custody) Push(to common.Address, amount *big.Int) error {
	return c.token.Transfer(c.account, to, amount)
}

// CheckPull reports whether Pull would succeed right now.
func (c *Custody) CheckPull(from common.Address, amount *big.Int) error {
	if from == c.account {
		return fmt.Errorf("%w: %s", ErrCustodySource, from.Hex())
	}
	v, err := toUint256(amount)
	if err != nil {
		return err
	}
	c.token.mu.RLock()
	defer c.token.mu.RUnlock()
	return c.token.checkTransferFrom(c.account, from, c.account, v)
}

// CheckPush reports whether Push would succeed right now.
func (c *Custody) CheckPush(to common.Address, amount *big.Int) error {
	v, err := toUint256(amount)
	if err != nil {
		return err
	}
	c.token.mu.RLock()
	defer c.token.mu.RUnlock()
	return c.token.checkTransfer(c.account, to, v)
}
