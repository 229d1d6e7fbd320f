package core

import (
	"golang.org/x/exp/constraints"
)

// Series is an ordered run of values, oldest first
type Series[T constraints.Integer | constraints.Float] []T

// Values returns the underlying slice of values
func (s Series[T]) Values() []T {
	return s
}

// Length returns the number of values in the series
func (s Series[T]) Length() int {
	return len(s)
}

// Last returns the value at a specified position from the end.
// Position 0 is the last value.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// LastValues returns a slice with the last 'size' values
// If size exceeds the length, returns the entire series
func (s Series[T]) LastValues(size int) Series[T] {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Min returns the smallest value, or zero for an empty series
func (s Series[T]) Min() T {
	var out T
	for i, v := range s {
		if i == 0 || v < out {
			out = v
		}
	}
	return out
}

// Max returns the largest value, or zero for an empty series
func (s Series[T]) Max() T {
	var out T
	for i, v := range s {
		if i == 0 || v > out {
			out = v
		}
	}
	return out
}

// Sum adds every value of the series
func (s Series[T]) Sum() T {
	var sum T
	for _, v := range s {
		sum += v
	}
	return sum
}

// Mean returns the arithmetic mean, or zero for an empty series
func (s Series[T]) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	return float64(s.Sum()) / float64(len(s))
}
