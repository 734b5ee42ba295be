package domain

// Location is one of the two retail shops.
type Location string

const (
	LocationEastham      Location = "Eastham"
	LocationBethnalGreen Location = "Bethnal Green"
)

// Locations returns the fixed set of shops in display order.
func Locations() []Location {
	return []Location{LocationEastham, LocationBethnalGreen}
}

// Valid reports whether l is a known shop.
func (l Location) Valid() bool {
	return l == LocationEastham || l == LocationBethnalGreen
}

// DispatchType says where the dispatched portions came from.
type DispatchType string

const (
	DispatchPrep      DispatchType = "prep"
	DispatchColdRoom  DispatchType = "coldroom"
	DispatchManual    DispatchType = "manual"
	DispatchInventory DispatchType = "inventory"
)

// Valid reports whether t is a known dispatch type.
func (t DispatchType) Valid() bool {
	switch t {
	case DispatchPrep, DispatchColdRoom, DispatchManual, DispatchInventory:
		return true
	}
	return false
}

// StorageLocation is where a shop keeps a batch.
type StorageLocation string

const (
	StorageFridge  StorageLocation = "Fridge"
	StorageFreezer StorageLocation = "Freezer"
)

// Valid reports whether s is a known storage location.
func (s StorageLocation) Valid() bool {
	return s == StorageFridge || s == StorageFreezer
}
