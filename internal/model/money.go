package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money хранит денежную сумму в центах.
type Money int64

// MoneyFromFloat переводит десятичную сумму в центы с округлением до цента.
func MoneyFromFloat(v float64) Money {
	return Money(math.Round(v * 100))
}

// Float возвращает сумму в виде десятичного числа.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// Mul возвращает сумму, умноженную на количество.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// String форматирует сумму с двумя знаками после точки.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON кодирует сумму как десятичное число.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON принимает десятичное число или строку с числом.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse money %q: %w", s, err)
	}
	*m = MoneyFromFloat(v)
	return nil
}
