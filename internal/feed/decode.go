package feed

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/hodl-ledger/internal/models"
)

var ErrMalformed = errors.New("malformed feed entry")

// Decode turns a stream entry with fields id, from, to, amount and timestamp
// into a transfer. The entry id stands in when the id field is absent.
func Decode(msg redis.XMessage) (models.Transfer, error) {
	id := field(msg, "id")
	if id == "" {
		id = msg.ID
	}
	t := models.Transfer{ID: id, From: field(msg, "from"), To: field(msg, "to")}
	if t.From == "" || t.To == "" {
		return t, fmt.Errorf("%w %s: from and to are required", ErrMalformed, msg.ID)
	}

	amount, err := decimal.NewFromString(field(msg, "amount"))
	if err != nil {
		return t, fmt.Errorf("%w %s: amount: %v", ErrMalformed, msg.ID, err)
	}
	t.Amount = amount

	ts, err := strconv.ParseInt(field(msg, "timestamp"), 10, 64)
	if err != nil {
		return t, fmt.Errorf("%w %s: timestamp: %v", ErrMalformed, msg.ID, err)
	}
	t.Timestamp = ts
	return t, nil
}

// field reads a value as text; Redis hands values back as strings.
func field(msg redis.XMessage, key string) string {
	switch v := msg.Values[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
