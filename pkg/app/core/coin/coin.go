// Package coin models fungible amounts exchanged by orders. Amounts are
// unsigned 256-bit integers; no floating point is used anywhere.
package coin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"
)

var ErrOverflow = errors.New("coin amount overflow")

// Coin is a (denom, amount) pair.
type Coin struct {
	Denom  string
	Amount uint256.Int
}

// New builds a coin from a uint64 amount.
func New(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: *uint256.NewInt(amount)}
}

// Parse builds a coin from a decimal amount string.
func Parse(denom, amount string) (Coin, error) {
	v, err := uint256.FromDecimal(amount)
	if err != nil {
		return Coin{}, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	return Coin{Denom: denom, Amount: *v}, nil
}

func (c Coin) String() string {
	return c.Amount.Dec() + c.Denom
}

// IsPositive reports whether the amount is non-zero.
func (c Coin) IsPositive() bool { return !c.Amount.IsZero() }

// HasDenom reports whether the denom is non-blank.
func (c Coin) HasDenom() bool { return strings.TrimSpace(c.Denom) != "" }

type coinJSON struct {
	Denom  string          `json:"denom"`
	Amount json.RawMessage `json:"amount"`
}

func (c Coin) MarshalJSON() ([]byte, error) {
	amount, err := json.Marshal(c.Amount.Dec())
	if err != nil {
		return nil, err
	}
	return json.Marshal(coinJSON{Denom: c.Denom, Amount: amount})
}

// UnmarshalJSON accepts the amount as a decimal string or a bare number.
func (c *Coin) UnmarshalJSON(data []byte) error {
	var raw coinJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount := string(bytes.TrimSpace(raw.Amount))
	if amount == "" || amount == "null" {
		amount = "0"
	}
	if strings.HasPrefix(amount, `"`) {
		if err := json.Unmarshal(raw.Amount, &amount); err != nil {
			return err
		}
	}
	parsed, err := Parse(raw.Denom, amount)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Sorted returns a copy of coins ordered by denom, then amount.
func Sorted(coins []Coin) []Coin {
	out := make([]Coin, len(coins))
	copy(out, coins)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Denom != out[j].Denom {
			return out[i].Denom < out[j].Denom
		}
		return out[i].Amount.Lt(&out[j].Amount)
	})
	return out
}

// Equal compares two coin lists as multisets.
func Equal(a, b []Coin) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := Sorted(a), Sorted(b)
	for i := range sa {
		if sa[i].Denom != sb[i].Denom || !sa[i].Amount.Eq(&sb[i].Amount) {
			return false
		}
	}
	return true
}

// Render formats coins for validation messages, e.g. "[10a, 50x]".
func Render(coins []Coin) string {
	parts := make([]string, len(coins))
	for i, c := range coins {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MultiplyAll scales every coin by n, failing on 256-bit overflow.
func MultiplyAll(coins []Coin, n uint64) ([]Coin, error) {
	factor := uint256.NewInt(n)
	out := make([]Coin, len(coins))
	for i := range coins {
		product, overflow := new(uint256.Int).MulOverflow(&coins[i].Amount, factor)
		if overflow {
			return nil, fmt.Errorf("%w: %s * %d", ErrOverflow, coins[i], n)
		}
		out[i] = Coin{Denom: coins[i].Denom, Amount: *product}
	}
	return out, nil
}
