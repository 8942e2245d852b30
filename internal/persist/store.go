// Package persist provides the durable per-key value store that seeds tracked
// fields across restarts.
package persist

// Sentinels written by earlier firmware to mean "no data yet". They only exist
// at this boundary; callers convert them to explicit optionals.
const (
	NoTemperature int32 = -300
	NoIcon        int32 = -1
)

// Store is a durable integer slot per key.
type Store interface {
	// Exists reports whether a value was ever written for key.
	Exists(key uint32) (bool, error)

	// Read returns the stored value. Reading a missing key returns ErrNotFound.
	Read(key uint32) (int32, error)

	// Write stores value under key, replacing any previous value.
	Write(key uint32, value int32) error

	// Clear removes every slot.
	Clear() error
}

// ReadOr returns the stored value for key or def when the slot is absent.
func ReadOr(s Store, key uint32, def int32) (int32, error) {
	ok, err := s.Exists(key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return s.Read(key)
}
