package validation

import (
	"fmt"
	"strings"
	"time"
)

// Validator предоставляет общие функции валидации
type Validator struct{}

// NewValidator создает новый Validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRequired проверяет, что строковое поле не пустое
func (v *Validator) ValidateRequired(value, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateHost проверяет имя хоста или IP без схемы и порта
func (v *Validator) ValidateHost(host, fieldName string) error {
	if err := v.ValidateRequired(host, fieldName); err != nil {
		return err
	}

	if strings.ContainsAny(host, " \t\n\r") {
		return fmt.Errorf("%s contains invalid whitespace characters", fieldName)
	}

	if strings.Contains(host, "://") {
		return fmt.Errorf("%s should not include a scheme", fieldName)
	}

	return nil
}

// ValidatePort проверяет диапазон порта и отсутствие пересечения с зарезервированными портами
func (v *Validator) ValidatePort(port int, fieldName string, reserved ...int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got: %d", fieldName, port)
	}
	for _, r := range reserved {
		if port == r {
			return fmt.Errorf("%s must not be %d: port is reserved", fieldName, r)
		}
	}
	return nil
}

// ValidateRange проверяет, что значение лежит в отрезке [min, max]
func (v *Validator) ValidateRange(value, min, max float64, fieldName string) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %g and %g, got: %g", fieldName, min, max, value)
	}
	return nil
}

// ValidateDuration разбирает длительность и проверяет, что она положительна
func (v *Validator) ValidateDuration(raw, fieldName string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", fieldName, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got: %s", fieldName, raw)
	}
	return d, nil
}

// ValidatePath проверяет путь HTTP маршрута. Путь не может содержать шаблоны
// ServeMux и совпадать с зарезервированными маршрутами.
func (v *Validator) ValidatePath(path, fieldName string, reserved ...string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%s must start with '/', got: %q", fieldName, path)
	}
	if strings.ContainsAny(path, " \t\n\r?#{}") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	for _, r := range reserved {
		if path == r {
			return fmt.Errorf("%s must not be %s: path is reserved", fieldName, r)
		}
	}
	return nil
}

// ValidateEnum проверяет значение на соответствие enum
func (v *Validator) ValidateEnum(value string, allowedValues []string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}

	return fmt.Errorf("invalid %s: %s, allowed values: %v", fieldName, value, allowedValues)
}

// ValidateStringLength проверяет длину строки
func (v *Validator) ValidateStringLength(value, fieldName string, min, max int) error {
	length := len(value)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters, got: %d", fieldName, min, length)
	}
	if length > max {
		return fmt.Errorf("%s must not exceed %d characters, got: %d", fieldName, max, length)
	}
	return nil
}
