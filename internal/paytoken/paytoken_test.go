package paytoken_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ivanzhdanov/trailmix/internal/paytoken"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	codec := paytoken.New([]byte("test-secret"))

	token, err := codec.Issue("order-42", 72*time.Hour)
	require.NoError(t, err)
	require.NotContains(t, token, "=", "base64 без паддинга")
	require.Equal(t, 2, strings.Count(token, ".")+1, "две части через одну точку")

	orderID, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "order-42", orderID)
}

func TestVerify_Expired(t *testing.T) {
	codec := paytoken.New([]byte("test-secret"))
	token, err := codec.Issue("order-42", time.Hour)
	require.NoError(t, err)

	late := codec.WithClock(func() time.Time {
		return time.Now().Add(2 * time.Hour)
	})
	_, err = late.Verify(token)
	require.ErrorIs(t, err, paytoken.ErrTokenExpired)
}

func TestVerify_TamperedByte(t *testing.T) {
	codec := paytoken.New([]byte("test-secret"))
	token, err := codec.Issue("order-42", time.Hour)
	require.NoError(t, err)

	// Порча любого одного символа делает токен невалидным. Последний символ
	// каждого base64-сегмента пропускаем: его младшие биты не несут данных,
	// и их изменение не меняет декодированные байты.
	dot := strings.IndexByte(token, '.')
	for i := 0; i < len(token); i++ {
		if i == dot || i == dot-1 || i == len(token)-1 {
			continue
		}
		flipped := []byte(token)
		if flipped[i] == 'A' {
			flipped[i] = 'B'
		} else {
			flipped[i] = 'A'
		}
		_, err := codec.Verify(string(flipped))
		require.Error(t, err, "position %d", i)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := paytoken.New([]byte("secret-a")).Issue("order-42", time.Hour)
	require.NoError(t, err)

	_, err = paytoken.New([]byte("secret-b")).Verify(token)
	require.ErrorIs(t, err, paytoken.ErrTokenInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	codec := paytoken.New([]byte("test-secret"))

	for _, token := range []string{
		"",
		"no-dot",
		".only-sig",
		"only-body.",
		"not!base64.not!base64",
	} {
		_, err := codec.Verify(token)
		require.ErrorIs(t, err, paytoken.ErrTokenInvalid, "token %q", token)
	}
}

func TestIssue_EmptyOrderID(t *testing.T) {
	_, err := paytoken.New([]byte("s")).Issue("", time.Hour)
	require.Error(t, err)
}
