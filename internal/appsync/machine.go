package appsync

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/watchface/internal/icon"
	"github.com/dokzlo13/watchface/internal/ledger"
	"github.com/dokzlo13/watchface/internal/metrics"
	"github.com/dokzlo13/watchface/internal/persist"
)

// Recorder receives the outcome of every update. The sync ledger implements it.
type Recorder interface {
	RecordUpdate(outcome ledger.Outcome, key uint32, value int32, detail string) error
	RecordTransportError(detail string) error
}

// rule is the parse/validate/apply policy of one field.
type rule struct {
	persisted bool
	accept    func(raw int32) bool
	apply     func(m *Machine, raw int32)
}

var rules = map[Key]rule{
	PeerBatteryPercent: {
		accept: func(int32) bool { return true },
		apply:  func(m *Machine, raw int32) { m.peerBattery = uint8(raw) },
	},
	Temperature: {
		persisted: true,
		accept:    func(raw int32) bool { return raw > AbsoluteZero },
		apply:     func(m *Machine, raw int32) { m.temperature = Celsius{Degrees: raw, Valid: true} },
	},
	WeatherIconID: {
		persisted: true,
		accept:    icon.Valid,
		apply:     (*Machine).applyIcon,
	},
	PeerChargingFlag: {
		accept: func(int32) bool { return true },
		apply:  func(m *Machine, raw int32) { m.peerCharging = raw != 0 },
	},
}

// Machine owns every tracked field. It is not safe for concurrent use; the
// face loop is its only caller.
type Machine struct {
	store    persist.Store
	icon     *icon.Handle
	recorder Recorder
	metrics  *metrics.Metrics

	phase        map[Key]Phase
	peerBattery  uint8
	temperature  Celsius
	iconIndex    IconIndex
	peerCharging bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithRecorder records every outcome to r.
func WithRecorder(r Recorder) Option {
	return func(m *Machine) { m.recorder = r }
}

// WithMetrics counts outcomes on mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

// New creates a machine with every field Uninitialized.
func New(store persist.Store, handle *icon.Handle, opts ...Option) *Machine {
	m := &Machine{
		store: store,
		icon:  handle,
		phase: make(map[Key]Phase, len(Keys)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed loads the persisted slots and moves every field to Seeded. Missing
// slots fall back to their sentinel, which the field rules reject, so the
// field stays absent until a live update arrives. Only the temperature and
// the weather icon are read back; the peer fields start from zero.
func (m *Machine) Seed() {
	seeds := map[Key]int32{
		Temperature:   persist.NoTemperature,
		WeatherIconID: persist.NoIcon,
	}
	for key, def := range seeds {
		v, err := persist.ReadOr(m.store, uint32(key), def)
		if err != nil {
			log.Warn().Err(err).Stringer("field", key).Msg("Failed to read persisted value, using default")
			v = def
		}
		if r := rules[key]; r.accept(v) {
			r.apply(m, v)
		}
	}

	m.peerBattery = 0
	m.peerCharging = false

	for _, key := range Keys {
		if m.phase[key] == Uninitialized {
			m.phase[key] = Seeded
		}
	}

	log.Info().
		Str("temperature", m.temperature.Text()).
		Bool("icon", m.iconIndex.Valid).
		Msg("Sync fields seeded")
}

// Apply runs one inbound update through the field rules. It returns true when
// the update was accepted and the field's region needs a redraw. Rejected
// updates leave every field untouched.
func (m *Machine) Apply(rawKey uint32, raw int32) bool {
	key := Key(rawKey)
	r, ok := rules[key]
	if !ok {
		m.reject(key, raw, "unknown key")
		return false
	}
	if !r.accept(raw) {
		m.reject(key, raw, "invalid value")
		return false
	}

	if r.persisted {
		if err := m.store.Write(uint32(key), raw); err != nil {
			log.Error().Err(err).Stringer("field", key).Int32("value", raw).Msg("Write-through failed")
		}
	}

	r.apply(m, raw)
	m.phase[key] = Live

	log.Debug().Stringer("field", key).Int32("value", raw).Msg("Sync update applied")
	m.metrics.SyncUpdate(key.String(), string(ledger.OutcomeAccepted))
	m.record(ledger.OutcomeAccepted, key, raw, "")
	return true
}

// TransportError absorbs a sync channel failure. No field changes and the
// failure is not retried here.
func (m *Machine) TransportError(err error) {
	log.Warn().Err(err).Msg("Sync transport error")
	m.metrics.TransportError()
	if m.recorder != nil {
		if rerr := m.recorder.RecordTransportError(err.Error()); rerr != nil {
			log.Debug().Err(rerr).Msg("Failed to record transport error")
		}
	}
}

// Phase returns the lifecycle phase of key.
func (m *Machine) Phase(key Key) Phase {
	return m.phase[key]
}

// Snapshot copies the current values for a draw pass.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		PeerBattery:  GaugePercent(m.peerBattery),
		Temperature:  m.temperature,
		Icon:         m.iconIndex,
		PeerCharging: m.peerCharging,
	}
}

// IconHandle exposes the owned icon for drawing.
func (m *Machine) IconHandle() *icon.Handle {
	return m.icon
}

// Close releases the icon resource.
func (m *Machine) Close() {
	m.icon.Release()
}

func (m *Machine) applyIcon(raw int32) {
	m.iconIndex = IconIndex{Index: int(raw), Valid: true}
	if err := m.icon.Replace(int(raw)); err != nil {
		log.Error().Err(err).Int32("icon", raw).Msg("Failed to load weather icon")
	}
}

func (m *Machine) reject(key Key, raw int32, reason string) {
	log.Debug().Stringer("field", key).Int32("value", raw).Str("reason", reason).Msg("Sync update dropped")
	m.metrics.SyncUpdate(key.String(), string(ledger.OutcomeRejected))
	m.record(ledger.OutcomeRejected, key, raw, reason)
}

func (m *Machine) record(outcome ledger.Outcome, key Key, raw int32, detail string) {
	if m.recorder == nil {
		return
	}
	if detail == "" {
		detail = key.String()
	} else {
		detail = fmt.Sprintf("%s: %s", key, detail)
	}
	if err := m.recorder.RecordUpdate(outcome, uint32(key), raw, detail); err != nil {
		log.Debug().Err(err).Msg("Failed to record sync update")
	}
}
