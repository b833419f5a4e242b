package cart

// Item is a cart line. UnitPrice is captured when the product is added
// and never refreshed from the catalog.
type Item struct {
	ProductID      string   `json:"product_id"`
	Name           string   `json:"name"`
	UnitPrice      float64  `json:"unit_price"`
	ImageUrl       string   `json:"image_url"`
	Customizations []string `json:"customizations"`
	Quantity       int      `json:"quantity"`
}

// Key returns the identity key of the line
func (it Item) Key() Key {
	return NewKey(it.ProductID, it.Customizations)
}

// Subtotal unit price times quantity
func (it Item) Subtotal() float64 {
	return it.UnitPrice * float64(it.Quantity)
}

// Cart is an ordered collection of lines with unique identity keys.
// A Cart is not safe for concurrent use; Store serializes access to it.
type Cart struct {
	items []Item
	index map[Key]int
}

func New() *Cart {
	return &Cart{index: make(map[Key]int)}
}

// AddItem merges the candidate into the line with the same identity key,
// or appends it. A quantity of zero or less counts as 1.
func (c *Cart) AddItem(candidate Item) {
	qty := candidate.Quantity
	if qty <= 0 {
		qty = 1
	}
	key := candidate.Key()
	if i, ok := c.index[key]; ok {
		c.items[i].Quantity += qty
		return
	}
	candidate.Quantity = qty
	candidate.Customizations = Canonical(candidate.Customizations)
	c.index[key] = len(c.items)
	c.items = append(c.items, candidate)
}

// IncreaseQty adds one to the matching line. It reports whether a line matched.
func (c *Cart) IncreaseQty(productID string, customizations []string) bool {
	i, ok := c.index[NewKey(productID, customizations)]
	if !ok {
		return false
	}
	c.items[i].Quantity++
	return true
}

// DecreaseQty removes one from the matching line, stopping at 1.
// Use RemoveItem to drop a line.
func (c *Cart) DecreaseQty(productID string, customizations []string) bool {
	i, ok := c.index[NewKey(productID, customizations)]
	if !ok {
		return false
	}
	if c.items[i].Quantity > 1 {
		c.items[i].Quantity--
	}
	return true
}

// RemoveItem deletes the matching line whatever its quantity
func (c *Cart) RemoveItem(productID string, customizations []string) bool {
	key := NewKey(productID, customizations)
	i, ok := c.index[key]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, key)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].Key()] = j
	}
	return true
}

// Take lowers the matching line by qty and drops it once nothing is left.
// It reports whether a line matched.
func (c *Cart) Take(productID string, customizations []string, qty int) bool {
	i, ok := c.index[NewKey(productID, customizations)]
	if !ok {
		return false
	}
	if c.items[i].Quantity > qty {
		c.items[i].Quantity -= qty
		return true
	}
	return c.RemoveItem(productID, customizations)
}

// Lookup returns a copy of the matching line
func (c *Cart) Lookup(productID string, customizations []string) (Item, bool) {
	i, ok := c.index[NewKey(productID, customizations)]
	if !ok {
		return Item{}, false
	}
	return copyItem(c.items[i]), true
}

func (c *Cart) TotalItems() int {
	var n int
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() float64 {
	var total float64
	for _, it := range c.items {
		total += it.Subtotal()
	}
	return total
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Items returns a copy of the lines in insertion order
func (c *Cart) Items() []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, copyItem(it))
	}
	return out
}

func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[Key]int)
}

func copyItem(it Item) Item {
	it.Customizations = append([]string{}, it.Customizations...)
	return it
}
