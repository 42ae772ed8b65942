package validation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// OrderCodePrefix префикс кода заказа.
const OrderCodePrefix = "SKN-"

const orderCodeDigits = 8

// GenerateOrderCode возвращает код заказа вида SKN-XXXXXXXXC, где C - контрольная цифра Луна.
func GenerateOrderCode() (string, error) {
	var b strings.Builder
	b.Grow(orderCodeDigits + 1)

	for i := 0; i < orderCodeDigits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate order code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	digits := b.String()
	return OrderCodePrefix + digits + string(rune('0'+luhnCheckDigit(digits))), nil
}

// IsValidOrderCode проверяет формат кода заказа и его контрольную цифру.
func IsValidOrderCode(code string) bool {
	digits, ok := strings.CutPrefix(code, OrderCodePrefix)
	if !ok || len(digits) != orderCodeDigits+1 {
		return false
	}
	return isValidLuhn(digits)
}

// isValidLuhn проверяет строку цифр по алгоритму Луна.
func isValidLuhn(number string) bool {
	if number == "" {
		return false
	}

	sum := 0
	double := false

	for i := len(number) - 1; i >= 0; i-- {
		ch := rune(number[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

// luhnCheckDigit вычисляет контрольную цифру для строки цифр.
func luhnCheckDigit(digits string) int {
	sum := 0
	double := true

	for i := len(digits) - 1; i >= 0; i-- {
		digit := int(digits[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return (10 - sum%10) % 10
}
