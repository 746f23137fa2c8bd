package vending

import (
	"math"
	"strconv"
	"strings"
)

// Coin values in cents.
const (
	QuarterValue = 25
	DimeValue    = 10
	NickelValue  = 5
	PennyValue   = 1
)

// Coins is a count per denomination. The machine's register and every
// computed change breakdown share this shape.
type Coins struct {
	Quarters int `json:"quarters"`
	Dimes    int `json:"dimes"`
	Nickels  int `json:"nickels"`
	Pennies  int `json:"pennies"`
}

// Total returns the value of the coins in cents.
func (c Coins) Total() int {
	return c.Quarters*QuarterValue + c.Dimes*DimeValue + c.Nickels*NickelValue + c.Pennies*PennyValue
}

// Add returns the denomination-wise sum of c and other.
func (c Coins) Add(other Coins) Coins {
	return Coins{
		Quarters: c.Quarters + other.Quarters,
		Dimes:    c.Dimes + other.Dimes,
		Nickels:  c.Nickels + other.Nickels,
		Pennies:  c.Pennies + other.Pennies,
	}
}

// IsZero reports whether no coins are held.
func (c Coins) IsZero() bool {
	return c == Coins{}
}

// CalculateChange breaks amount (cents) into coins, largest denomination first,
// each step working on what the previous one left over. The result is
// hypothetical: the register is not consulted.
func CalculateChange(amount int) Coins {
	var c Coins
	c.Quarters, amount = amount/QuarterValue, amount%QuarterValue
	c.Dimes, amount = amount/DimeValue, amount%DimeValue
	c.Nickels, amount = amount/NickelValue, amount%NickelValue
	c.Pennies = amount / PennyValue
	return c
}

// ParseAmount converts a raw deposit value into cents. Anything that is not a
// finite whole number yields 0, which Deposit treats as a no-op.
func ParseAmount(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
