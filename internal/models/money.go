package models

import "fmt"

// Money is a monetary amount in currency minor units (e.g. cents).
// 1050 represents 10.50. Arithmetic on Money is plain integer
// arithmetic; there is no floating point anywhere in the money path.
type Money int64

// String formats the amount with two decimal places.
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}
