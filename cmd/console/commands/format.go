package commands

import (
	"fmt"
	"io"
	"math/big"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct/calculator"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
)

// Pool shares and spot prices are PRECISION-scaled.
const shareDecimals = calculator.PrecisionDecimals

// header prints a styled section header
func header(w io.Writer, title string) {
	fmt.Fprintln(w, "\n"+Bold+Cyan+":: "+title+" ::"+Reset)
}

// ioDecimals returns the display decimals of the input and output asset of d.
func ioDecimals(d constantproduct.Direction) (in, out uint8) {
	if d == constantproduct.Asset1ToAsset2 {
		return decimals1, decimals2
	}
	return decimals2, decimals1
}

func formatAsset1(v *big.Int) string { return ledger.FormatUnits(v, decimals1) }
func formatAsset2(v *big.Int) string { return ledger.FormatUnits(v, decimals2) }
func formatShares(v *big.Int) string { return ledger.FormatUnits(v, shareDecimals) }

// sharePercent renders shares as a percentage of total with two decimals.
func sharePercent(shares, total *big.Int) string {
	if total == nil || total.Sign() == 0 || shares == nil {
		return "0.00%"
	}
	bp := new(big.Int).Mul(shares, big.NewInt(10_000))
	bp.Quo(bp, total)
	whole, frac := new(big.Int).QuoRem(bp, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s.%02d%%", whole, frac.Int64())
}

func formatPrice(v *big.Int) string { return ledger.FormatUnits(v, shareDecimals) }
