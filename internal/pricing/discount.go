package pricing

import (
	"errors"
	"strings"
	"unicode"
)

// ErrCodeInvalid возвращается для кодов вне allow-list или с нераспознаваемой
// числовой частью.
var ErrCodeInvalid = errors.New("discount code is invalid")

// RuleKind задаёт вид скидочного правила.
type RuleKind string

const (
	// RulePercentage — скидка в процентах от суммы.
	RulePercentage RuleKind = "percentage"
	// RuleFixed — фиксированная скидка в денежных единицах.
	RuleFixed RuleKind = "fixed"
)

// Rule — скидочное правило, восстановленное из кода.
type Rule struct {
	Kind  RuleKind `json:"kind"`
	Value int64    `json:"value"`
}

// Apply применяет правило к сумме amount с потолком cap.
// percentage: raw = amount*value/100 (целочисленно);
// fixed: raw = min(value, amount) — скидка не превышает саму сумму.
// Затем потолок: applied = min(raw, cap). Применение потолка идемпотентно.
func (r Rule) Apply(amount, cap int64) (applied int64, capped bool) {
	var raw int64
	switch r.Kind {
	case RulePercentage:
		raw = amount * r.Value / 100
	case RuleFixed:
		raw = r.Value
		if raw > amount {
			raw = amount
		}
	default:
		return 0, false
	}

	if cap > 0 && raw > cap {
		return cap, true
	}
	return raw, false
}

// Resolver восстанавливает скидочные правила из кодов.
// Явная таблица существует для ручных исключений; эвристика по хвостовым
// цифрам — наблюдаемое поведение, намеренно сохранённое как есть
// (включая пороги длины), несмотря на её хрупкость.
type Resolver struct {
	allowed  map[string]struct{}
	explicit map[string]Rule
}

// NewResolver создаёт resolver с allow-list кодов и явной таблицей правил.
// Ключи обеих структур нормализуются к верхнему регистру.
func NewResolver(allowed []string, explicit map[string]Rule) *Resolver {
	r := &Resolver{
		allowed:  make(map[string]struct{}, len(allowed)),
		explicit: make(map[string]Rule, len(explicit)),
	}
	for _, code := range allowed {
		r.allowed[strings.ToUpper(code)] = struct{}{}
	}
	for code, rule := range explicit {
		r.explicit[strings.ToUpper(code)] = rule
	}
	return r
}

// NormalizeCode приводит код скидки к канонической форме: обрезанные
// пробелы, верхний регистр. Та же форма хранится в заказе.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolve превращает код в правило или возвращает ErrCodeInvalid.
// Код вне allow-list отвергается до эвристики: иначе произвольные строки
// могли бы прощупывать разбор хвостовых цифр.
func (r *Resolver) Resolve(code string) (Rule, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Rule{}, ErrCodeInvalid
	}
	if _, ok := r.allowed[normalized]; !ok {
		return Rule{}, ErrCodeInvalid
	}
	if rule, ok := r.explicit[normalized]; ok {
		return rule, nil
	}
	return ruleFromTrailingDigits(normalized)
}

// ruleFromTrailingDigits разбирает хвостовую группу десятичных цифр кода:
// 1–2 цифры со значением в [1,100] — процент, 3–5 цифр со значением > 0 —
// фиксированная сумма, всё остальное — invalid.
func ruleFromTrailingDigits(code string) (Rule, error) {
	end := len(code)
	start := end
	for start > 0 && unicode.IsDigit(rune(code[start-1])) {
		start--
	}
	digits := code[start:end]
	if digits == "" {
		return Rule{}, ErrCodeInvalid
	}

	var value int64
	for _, c := range digits {
		value = value*10 + int64(c-'0')
	}

	switch n := len(digits); {
	case n <= 2 && value >= 1 && value <= 100:
		return Rule{Kind: RulePercentage, Value: value}, nil
	case n >= 3 && n <= 5 && value > 0:
		return Rule{Kind: RuleFixed, Value: value}, nil
	default:
		return Rule{}, ErrCodeInvalid
	}
}
