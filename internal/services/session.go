package services

import (
	"encoding/json"
	"fmt"
)

// Session is the per-visitor state a request carries. Cart, verification
// challenge and pending payment live here instead of in global state.
// *session.Session from fiber satisfies it.
type Session interface {
	ID() string
	Get(key string) interface{}
	Set(key string, val interface{})
	Delete(key string)
}

// Session keys.
const (
	sessionCartKey      = "cart"
	sessionChallengeKey = "verification"
	sessionPaymentKey   = "payment"
)

// Values are stored as JSON strings so any session storage can encode them.
func loadJSON(sess Session, key string, out interface{}) (bool, error) {
	raw, ok := sess.Get(key).(string)
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode session value %q: %w", key, err)
	}
	return true, nil
}

func storeJSON(sess Session, key string, val interface{}) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode session value %q: %w", key, err)
	}
	sess.Set(key, string(raw))
	return nil
}
