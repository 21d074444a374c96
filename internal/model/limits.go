package model

import "unicode/utf8"

// Column widths of the VARCHAR columns in characters. Values longer
// than these are rejected by MySQL in strict mode.
const (
	MaxNameLen        = 255
	MaxEmailLen       = 255
	MaxPhoneLen       = 50
	MaxShippingLen    = 1000
	MaxSizeLen        = 16
	MaxTrackingLen    = 255
	MaxCategoryLen    = 100
	MaxImageURLLen    = 1024
	MaxRequestTypeLen = 64
	MaxPersonNameLen  = 100 // users.first_name, users.last_name
	MaxUserAddressLen = 500
	MaxCityLen        = 100
)

// Field is a named value checked against a column width.
type Field struct {
	Name  string
	Value string
	Max   int
}

// Overlong returns the first field whose value has more than Max
// characters.
func Overlong(fields ...Field) (Field, bool) {
	for _, f := range fields {
		if utf8.RuneCountInString(f.Value) > f.Max {
			return f, true
		}
	}
	return Field{}, false
}
