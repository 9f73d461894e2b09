package model

// Address represents a row in the `addresses` table.  Addresses form
// read-only reference data imported once from static town data; the
// spawner picks one uniformly at random for every generated order.
type Address struct {
	ID          uint64
	HouseNumber string
	Street      string
	Town        string
}

// Line returns the street line of the address, e.g. "12 Boulevard Ave".
func (a Address) Line() string {
	return a.HouseNumber + " " + a.Street
}
