// Пакет record преобразует регистр ключей плоских записей на границе
// с хранилищем: домен работает с camelCase, таблицы — со snake_case.
package record

import "strings"

// Record — плоская запись вида ключ-значение. Значения не трогаются,
// вложенные объекты и массивы проходят как непрозрачные значения.
type Record = map[string]any

// SnakeKeys переводит ключи записи в snake_case: перед каждой заглавной
// буквой вставляется '_', затем весь ключ приводится к нижнему регистру.
// Работает на один уровень вглубь.
func SnakeKeys(in Record) Record {
	out := make(Record, len(in))
	for key, value := range in {
		out[snake(key)] = value
	}
	return out
}

// CamelKeys переводит ключи записи в camelCase: ключ разбивается по '_',
// первый сегмент остаётся как есть в нижнем регистре, у последующих
// поднимается первая буква. Ключ без '_' проходит без изменений.
//
// Ограничение: CamelKeys(SnakeKeys(x)) == x только для ключей в чистом
// camelCase; ключ, уже содержащий '_', после круга изменится. Это
// документированное свойство схемы, а не дефект для тихого исправления.
func CamelKeys(in Record) Record {
	out := make(Record, len(in))
	for key, value := range in {
		out[camel(key)] = value
	}
	return out
}

func snake(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func camel(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	parts := strings.Split(key, "_")
	var b strings.Builder
	b.Grow(len(key))
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
