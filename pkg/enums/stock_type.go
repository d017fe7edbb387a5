package enums

import "fmt"

// StockType separates the online and offline stock channels.
type StockType string

const (
	StockTypeOnline  StockType = "ONLINE"
	StockTypeOffline StockType = "OFFLINE"
)

var validStockTypes = []StockType{
	StockTypeOnline,
	StockTypeOffline,
}

// String implements fmt.Stringer.
func (s StockType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockType.
func (s StockType) IsValid() bool {
	for _, candidate := range validStockTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockType converts raw input into a StockType.
func ParseStockType(value string) (StockType, error) {
	for _, candidate := range validStockTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock type %q", value)
}
