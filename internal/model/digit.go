package model

import "strconv"

// LastDigit extracts the last significant digit of a price quoted at the
// given pip precision (number of decimal places). This is the digit that
// digit contracts settle against.
func LastDigit(price float64, pipDigits int) int {
	if pipDigits < 0 {
		pipDigits = 0
	}
	s := strconv.FormatFloat(price, 'f', pipDigits, 64)
	c := s[len(s)-1]
	if c < '0' || c > '9' {
		return 0
	}
	return int(c - '0')
}
