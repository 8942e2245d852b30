// Package transport carries sync updates and weather requests between the
// face and its companion over a websocket.
package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// Message types.
const (
	TypeUpdate         = "update"
	TypeRequestWeather = "request_weather"
)

// ErrInvalidValue is returned for a value that is neither a number nor a bool.
var ErrInvalidValue = errors.New("invalid sync value")

// Message is the single frame format on the sync socket. Values maps decimal
// keys to JSON numbers or booleans.
type Message struct {
	Type   string                     `json:"type"`
	ID     string                     `json:"id,omitempty"`
	Values map[string]json.RawMessage `json:"values,omitempty"`
}

// Pair is one decoded key/value.
type Pair struct {
	Key   uint32
	Value int32
}

// NewWeatherRequest creates a request with a fresh id.
func NewWeatherRequest() Message {
	return Message{Type: TypeRequestWeather, ID: uuid.NewString()}
}

// NewUpdate creates an update message carrying values.
func NewUpdate(values map[uint32]int32) Message {
	m := Message{Type: TypeUpdate, Values: make(map[string]json.RawMessage, len(values))}
	for k, v := range values {
		m.Values[strconv.FormatUint(uint64(k), 10)] = json.RawMessage(strconv.FormatInt(int64(v), 10))
	}
	return m
}

// Pairs decodes Values in ascending key order. Numbers are truncated toward
// zero, booleans become 1 and 0.
func (m Message) Pairs() ([]Pair, error) {
	pairs := make([]Pair, 0, len(m.Values))
	for rawKey, rawValue := range m.Values {
		key, err := strconv.ParseUint(rawKey, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid sync key %q: %w", rawKey, err)
		}
		value, err := decodeValue(rawValue)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", key, err)
		}
		pairs = append(pairs, Pair{Key: uint32(key), Value: value})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

func decodeValue(raw json.RawMessage) (int32, error) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidValue, raw)
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidValue, raw)
	}
	f = math.Trunc(f)
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidValue, raw)
	}
	return int32(f), nil
}
