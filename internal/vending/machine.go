package vending

import "fmt"

// DefaultCoinCount is how many coins of each denomination a new machine holds.
const DefaultCoinCount = 100

// Item is a product slot in the machine. Price is in cents.
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
}

// Machine is a single vending machine. It is not safe for concurrent use;
// see DefaultService for a serialized wrapper.
type Machine struct {
	register   Coins
	inventory  map[string]*Item
	deposited  int
	coinReturn Coins
}

// NewMachine returns an empty machine whose register holds DefaultCoinCount
// coins of every denomination.
func NewMachine() *Machine {
	return NewMachineWithRegister(Coins{
		Quarters: DefaultCoinCount,
		Dimes:    DefaultCoinCount,
		Nickels:  DefaultCoinCount,
		Pennies:  DefaultCoinCount,
	})
}

// NewMachineWithRegister returns an empty machine with the given coin float.
func NewMachineWithRegister(register Coins) *Machine {
	return &Machine{
		register:  register,
		inventory: make(map[string]*Item),
	}
}

// Deposit adds amount cents to the balance and returns the new balance.
// Non-positive amounts are ignored.
func (m *Machine) Deposit(amount int) int {
	if amount > 0 {
		m.deposited += amount
	}
	return m.deposited
}

// Balance returns the money deposited in the current session.
func (m *Machine) Balance() int {
	return m.deposited
}

// Register returns a copy of the coin register.
func (m *Machine) Register() Coins {
	return m.register
}

// GetItem returns the item stored under itemCode, or nil.
func (m *Machine) GetItem(itemCode string) *Item {
	return m.inventory[itemCode]
}

// Items returns a snapshot of the inventory.
func (m *Machine) Items() map[string]Item {
	items := make(map[string]Item, len(m.inventory))
	for code, item := range m.inventory {
		items[code] = *item
	}
	return items
}

// Restock stores item under itemCode, replacing any previous entry.
// Values are stored as given.
func (m *Machine) Restock(itemCode string, item Item) {
	m.inventory[itemCode] = &item
}

// CalculateChange breaks amount into coins. See the package-level CalculateChange.
func (m *Machine) CalculateChange(amount int) Coins {
	return CalculateChange(amount)
}

// IsChangeAvailable reports whether the register can pay out change.
// Denominations are checked from quarters down and only when required.
func (m *Machine) IsChangeAvailable(change Coins) bool {
	if change.Quarters > 0 && m.register.Quarters < change.Quarters {
		return false
	}
	if change.Dimes > 0 && m.register.Dimes < change.Dimes {
		return false
	}
	if change.Nickels > 0 && m.register.Nickels < change.Nickels {
		return false
	}
	if change.Pennies > 0 && m.register.Pennies < change.Pennies {
		return false
	}
	return true
}

// AddChange credits coins to the register and returns the updated register.
func (m *Machine) AddChange(coins Coins) Coins {
	m.register = m.register.Add(coins)
	return m.register
}

// Refund zeroes the balance and returns what is owed as coins. The register
// is not consulted. The coins are also dropped into the coin return.
func (m *Machine) Refund() Coins {
	coins := CalculateChange(m.deposited)
	m.deposited = 0
	m.coinReturn = m.coinReturn.Add(coins)
	return coins
}

// CollectCoinReturn empties the coin return and returns its contents.
func (m *Machine) CollectCoinReturn() Coins {
	coins := m.coinReturn
	m.coinReturn = Coins{}
	return coins
}

// Purchase sells the item stored under itemCode.
//
// On success the price is credited to the register, the remaining balance is
// refunded and the dispensed item is returned. Failures are reported as an
// ErrorCode; every failure except ErrInsufficientFunds refunds the whole
// balance.
func (m *Machine) Purchase(itemCode string) (*Item, error) {
	item := m.GetItem(itemCode)

	switch {
	case item != nil && item.Quantity > 0 && m.deposited >= item.Price:
		purchase := CalculateChange(item.Price)
		refund := CalculateChange(m.deposited - item.Price)
		if !m.IsChangeAvailable(refund) {
			m.Refund()
			return nil, ErrNotEnoughChange
		}
		m.deposited -= item.Price
		m.AddChange(purchase)
		m.Refund()
		return m.Dispense(itemCode), nil
	case item != nil && m.deposited < item.Price:
		return nil, ErrInsufficientFunds
	case item != nil && item.Quantity == 0:
		m.Refund()
		return nil, ErrOutOfStock
	default:
		m.Refund()
		return nil, ErrUnknownItem
	}
}

// Dispense takes one unit of itemCode out of stock and returns the item.
// The caller must have checked that the item exists; an unknown code panics.
func (m *Machine) Dispense(itemCode string) *Item {
	item, ok := m.inventory[itemCode]
	if !ok {
		panic(fmt.Sprintf("vending: dispense of unknown item %q", itemCode))
	}
	item.Quantity--
	return item
}
