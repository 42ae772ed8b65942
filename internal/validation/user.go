// Package validation содержит функции валидации входных данных.
package validation

import (
	"regexp"
	"strings"
)

// MinPasswordLength минимальная длина пароля.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail проверяет, что адрес имеет вид local@domain.tld.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizeEmail приводит адрес к виду, в котором адреса сравниваются без учёта регистра.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidPassword проверяет длину пароля в символах.
func IsValidPassword(password string) bool {
	return len([]rune(password)) >= MinPasswordLength
}
