package media

import (
	"fmt"
	"math"
)

// Fraction is an exact rational number, used for frame rates and time bases.
type Fraction struct {
	Num int
	Den int
}

// Frac builds a fraction without reducing it.
func Frac(num, den int) Fraction {
	return Fraction{Num: num, Den: den}
}

// IsValid reports whether the fraction represents a positive rate.
func (f Fraction) IsValid() bool {
	return f.Num > 0 && f.Den > 0
}

// Value returns the fraction as a float. Returns 0 for invalid fractions.
func (f Fraction) Value() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

// Invert swaps numerator and denominator, turning a rate into a time base.
func (f Fraction) Invert() Fraction {
	return Fraction{Num: f.Den, Den: f.Num}
}

// Round returns the nearest integer value of the fraction.
func (f Fraction) Round() int {
	return int(math.Round(f.Value()))
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}
