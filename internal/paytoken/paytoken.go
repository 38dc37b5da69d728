// Пакет paytoken выдаёт и проверяет подписанные токены-capability
// «возобновить оплату заказа X до момента T». Токен существует только
// в закодированном виде и нигде не хранится; отозвать его до истечения
// срока нельзя. Смена секрета молча инвалидирует все выданные токены —
// это задокументированный риск деплоя, приемлемый для короткого TTL.
package paytoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid — токен повреждён, подделан или не разобрался.
	ErrTokenInvalid = errors.New("pay token is invalid")
	// ErrTokenExpired — подпись верна, но срок действия истёк.
	ErrTokenExpired = errors.New("pay token has expired")
)

// payload — каноническая форма подписываемых данных.
// Порядок полей фиксирован структурой, поэтому сериализация стабильна.
type payload struct {
	OrderID string `json:"order_id"`
	Exp     int64  `json:"exp"`
}

// Codec выдаёт и проверяет токены одним общим для процесса секретом.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// New создаёт кодек с указанным секретом.
func New(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// WithClock возвращает копию кодека с подменённым источником времени.
// Используется в тестах для проверки истечения срока.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	return &Codec{secret: c.secret, now: now}
}

// Issue выпускает токен на orderID со сроком действия ttl.
// Формат: base64url(payload) + "." + base64url(HMAC-SHA256(secret, payload)),
// оба без паддинга.
func (c *Codec) Issue(orderID string, ttl time.Duration) (string, error) {
	if orderID == "" {
		return "", ErrTokenInvalid
	}

	body, err := json.Marshal(payload{
		OrderID: orderID,
		Exp:     c.now().Unix() + int64(ttl/time.Second),
	})
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	sig := mac.Sum(nil)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(body) + "." + enc.EncodeToString(sig), nil
}

// Verify проверяет токен и возвращает идентификатор заказа.
// Любой дефект формы или подписи — ErrTokenInvalid, истёкший срок —
// ErrTokenExpired; промежуточных состояний валидности нет.
func (c *Codec) Verify(token string) (string, error) {
	encBody, encSig, ok := strings.Cut(token, ".")
	if !ok || encBody == "" || encSig == "" {
		return "", ErrTokenInvalid
	}

	enc := base64.RawURLEncoding
	body, err := enc.DecodeString(encBody)
	if err != nil {
		return "", ErrTokenInvalid
	}
	sig, err := enc.DecodeString(encSig)
	if err != nil {
		return "", ErrTokenInvalid
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	// hmac.Equal выполняет сравнение за константное время: обычное
	// сравнение открыло бы timing-канал на подпись.
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return "", ErrTokenInvalid
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil || p.OrderID == "" {
		return "", ErrTokenInvalid
	}

	// Строгое истечение, без допуска на рассинхронизацию часов.
	if p.Exp < c.now().Unix() {
		return "", ErrTokenExpired
	}

	return p.OrderID, nil
}
