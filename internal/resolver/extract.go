package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoRecognizableAddress — в payload сервиса адресов не нашлось
// распознаваемого адреса.
var ErrNoRecognizableAddress = errors.New("no recognizable address in payload")

// Ключи, под которыми сервис адресов может прятать объект.
var nestedKeys = []string{"data", "property"}

// Ключи частей адреса в порядке сборки.
var (
	streetKeys = []string{"street", "street_address", "address_line1", "line1"}
	cityKeys   = []string{"city", "municipality"}
	stateKeys  = []string{"state", "province", "region"}
	postalKeys = []string{"postal_code", "postalcode", "zip", "zip_code"}
)

// ExtractAddress извлекает адрес из JSON-ответа сервиса адресов.
//
// Сервис отдаёт payload в одной из нескольких форм (намеренно
// допускаются все):
//   - {"address": "123 Main St, Toronto, ON"}
//   - {"address": {"street": ..., "city": ..., "province": ..., "postal_code": ...}}
//   - [{...}] — массив с одним объектом
//   - {"data": {...}} или {"property": {...}} — вложенный объект
//
// Отсутствие распознаваемого адреса — ошибка разрешения.
func ExtractAddress(payload []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", fmt.Errorf("parse payload: %w", err)
	}

	address := extractFrom(doc, 0)
	if address == "" {
		return "", ErrNoRecognizableAddress
	}
	return address, nil
}

// extractFrom рекурсивно ищет адрес в документе.
// depth ограничивает спуск по вложенным ключам.
func extractFrom(doc any, depth int) string {
	if depth > 4 {
		return ""
	}

	switch v := doc.(type) {
	case []any:
		// Массив-обёртка — берём первый элемент
		if len(v) == 0 {
			return ""
		}
		return extractFrom(v[0], depth+1)

	case map[string]any:
		if addr, ok := v["address"]; ok {
			if s := addressValue(addr); s != "" {
				return s
			}
		}

		// Сам объект может быть набором частей адреса
		if s := assembleParts(v); s != "" {
			return s
		}

		// Спускаемся под data / property
		for _, key := range nestedKeys {
			if nested, ok := v[key]; ok {
				if s := extractFrom(nested, depth+1); s != "" {
					return s
				}
			}
		}
	}

	return ""
}

// addressValue обрабатывает значение поля "address": строку или объект частей.
func addressValue(addr any) string {
	switch v := addr.(type) {
	case string:
		return Normalize(v)
	case map[string]any:
		return assembleParts(v)
	case []any:
		if len(v) > 0 {
			return addressValue(v[0])
		}
	}
	return ""
}

// assembleParts собирает адрес из полей street/city/state/postal.
// Без street адрес не считается распознанным.
func assembleParts(obj map[string]any) string {
	street := firstString(obj, streetKeys)
	if street == "" {
		return ""
	}

	parts := []string{street}
	if city := firstString(obj, cityKeys); city != "" {
		parts = append(parts, city)
	}
	if state := firstString(obj, stateKeys); state != "" {
		parts = append(parts, state)
	}
	if postal := firstString(obj, postalKeys); postal != "" {
		parts = append(parts, postal)
	}

	return Normalize(strings.Join(parts, ", "))
}

// firstString возвращает первое непустое строковое значение по списку ключей.
func firstString(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if val, ok := obj[key]; ok {
			if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// Normalize приводит строку адреса к каноничному виду:
// схлопывает пробелы и убирает висячие запятые.
func Normalize(address string) string {
	fields := strings.Fields(address)
	s := strings.Join(fields, " ")
	s = strings.Trim(s, ", ")
	return s
}
