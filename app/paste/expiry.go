package paste

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// checkExpiryBounds rejects expiry times that already passed or sit further
// out than the configured maximum
func checkExpiryBounds(t, now time.Time) (*time.Time, error) {
	if !t.After(now) {
		return nil, errors.New("The expiry provided is already in the past")
	}

	if maxHours := viper.GetInt("paste.max_expiry_hours"); maxHours > 0 {
		if t.Sub(now) > time.Duration(maxHours)*time.Hour {
			return nil, fmt.Errorf("The expiry provided is too far in the future, maximum is %d hours", maxHours)
		}
	}

	return &t, nil
}
