// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ratio provides exact, arbitrary-precision rational arithmetic for
// the Senate count. Every transfer value and tally in the count is a
// Rational; nothing in this package ever rounds during arithmetic, matching
// the requirement that Section 273 transfer values are exact fractions.
package ratio

import (
	"fmt"
	"math/big"
)

// Rational is an exact fraction, always kept in lowest terms with a
// positive denominator (the invariant big.Rat itself maintains).
type Rational struct {
	r big.Rat
}

// Zero is the additive identity.
func Zero() Rational { return Rational{} }

// FromInt builds a Rational equal to n.
func FromInt(n int64) Rational {
	var r Rational
	r.r.SetInt64(n)
	return r
}

// FromFrac builds a Rational equal to num/den. Panics if den is zero, since
// every caller in this codebase constructs denominators from ballot or
// paper counts that are checked non-zero before this is called.
func FromFrac(num, den int64) Rational {
	if den == 0 {
		panic("ratio: zero denominator")
	}
	var r Rational
	r.r.SetFrac64(num, den)
	return r
}

// FromBigInts builds a Rational equal to num/den, taking ownership of neither
// argument (both are copied).
func FromBigInts(num, den *big.Int) Rational {
	var r Rational
	r.r.SetFrac(num, den)
	return r
}

// Add returns a+b.
func Add(a, b Rational) Rational {
	var out Rational
	out.r.Add(&a.r, &b.r)
	return out
}

// Sub returns a-b.
func Sub(a, b Rational) Rational {
	var out Rational
	out.r.Sub(&a.r, &b.r)
	return out
}

// Mul returns a*b.
func Mul(a, b Rational) Rational {
	var out Rational
	out.r.Mul(&a.r, &b.r)
	return out
}

// Quo returns a/b. Panics if b is zero; callers must not divide by a
// candidate's ballot count without first checking it is positive.
func Quo(a, b Rational) Rational {
	if b.r.Sign() == 0 {
		panic("ratio: division by zero")
	}
	var out Rational
	out.r.Quo(&a.r, &b.r)
	return out
}

// Floor returns the greatest integer <= a.
func (a Rational) Floor() *big.Int {
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(a.r.Num(), a.r.Denom(), m)
	return q
}

// Cmp compares a to b: -1, 0, or 1.
func (a Rational) Cmp(b Rational) int {
	return a.r.Cmp(&b.r)
}

// Equal reports whether a == b.
func (a Rational) Equal(b Rational) bool {
	return a.Cmp(b) == 0
}

// Sign returns -1, 0, or 1 according to the sign of a.
func (a Rational) Sign() int {
	return a.r.Sign()
}

// IsZero reports whether a is exactly zero.
func (a Rational) IsZero() bool {
	return a.r.Sign() == 0
}

// Min returns the smaller of a and b.
func Min(a, b Rational) Rational {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// String renders a as "p/q" in lowest terms, or "p" when the denominator is 1.
// This is the canonical serialisation used in RoundRecord transcripts.
func (a Rational) String() string {
	if a.r.IsInt() {
		return a.r.Num().String()
	}
	return a.r.RatString()
}

// Decimal renders a as a decimal string truncated (never rounded) to n
// fractional digits. This is for human-readable display only; the count
// itself must never depend on this value. big.Rat.FloatString rounds to
// nearest, so the truncation is done directly on the numerator and
// denominator instead.
func (a Rational) Decimal(n int) string {
	if n < 0 {
		n = 0
	}
	num := new(big.Int).Abs(a.r.Num())
	den := a.r.Denom()
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	scaled := new(big.Int).Quo(new(big.Int).Mul(num, scale), den)

	digits := scaled.String()
	for len(digits) <= n {
		digits = "0" + digits
	}

	var out string
	if n == 0 {
		out = digits
	} else {
		out = digits[:len(digits)-n] + "." + digits[len(digits)-n:]
	}
	if a.r.Sign() < 0 && scaled.Sign() != 0 {
		out = "-" + out
	}
	return out
}

// Parse reads a Rational from its "p/q" or "p" string form, as produced by
// String, or as supplied in ingestion input (e.g. ballot weights).
func Parse(s string) (Rational, error) {
	var out Rational
	if _, ok := out.r.SetString(s); !ok {
		return Rational{}, fmt.Errorf("ratio: invalid rational %q", s)
	}
	return out, nil
}

// MarshalJSON encodes a Rational as its canonical "p/q" string, per spec:
// rationals are serialised as strings to avoid binary-representation loss.
func (a Rational) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", a.String())), nil
}

// UnmarshalJSON decodes a Rational from its "p/q" string form.
func (a *Rational) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsonUnquote(data, &s); err != nil {
		return err
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// jsonUnquote is a tiny helper so this package doesn't need to import
// encoding/json solely for string unquoting.
func jsonUnquote(data []byte, out *string) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("ratio: malformed JSON string %s", data)
	}
	*out = string(data[1 : len(data)-1])
	return nil
}
