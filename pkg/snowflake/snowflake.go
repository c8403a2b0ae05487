// Package snowflake generates time-ordered unique IDs for pastes and documents
package snowflake

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	// Number of low bits reserved for the random component. Leaves
	// ~4M possible IDs per second before a collision is forced
	randomBits = 22
	randomMask = 1<<randomBits - 1
)

// ID is a 64-bit identifier with the creation time in the high bits
// and a random value in the low 22. IDs generated later always compare
// greater. Uniqueness is probabilistic, the database's primary key
// constraint is what actually rejects collisions.
type ID uint64

// Generate returns a new ID based on the current time. Fails only if
// the system entropy source does.
func Generate() (ID, error) {
	return generateAt(time.Now())
}

func generateAt(t time.Time) (ID, error) {
	var buf [8]byte

	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read random bytes, %w", err)
	}

	r := binary.BigEndian.Uint64(buf[:])

	return ID(uint64(t.Unix())<<randomBits | r&randomMask), nil
}

// CreatedAt recovers the creation time embedded in the ID
func (id ID) CreatedAt() time.Time {
	return time.Unix(int64(id>>randomBits), 0)
}

// String renders the ID as a decimal string. IDs always cross the wire
// as strings because 64-bit values lose precision in JS clients
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Parse converts a decimal string back into an ID
func Parse(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q, %w", s, err)
	}

	return ID(v), nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string

	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	v, err := Parse(s)
	if err != nil {
		return err
	}

	*id = v
	return nil
}

// Value stores the ID as a signed integer so it fits both the
// sqlite and postgres integer column types
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}

func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*id = ID(v)
	case uint64:
		*id = ID(v)
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*id = parsed
	default:
		return fmt.Errorf("cannot scan %T into a snowflake ID", src)
	}

	return nil
}
