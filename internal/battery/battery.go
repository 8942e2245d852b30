// Package battery reads the host power supply and reports changes.
package battery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRoot is where the kernel exposes power supplies.
const DefaultRoot = "/sys/class/power_supply"

// ErrNoBattery is returned when no battery supply can be found.
var ErrNoBattery = errors.New("no battery found")

// Reading is one battery sample.
type Reading struct {
	Percent  int
	Charging bool
}

// Source produces battery readings.
type Source interface {
	Read() (Reading, error)
}

// Sysfs reads a power_supply directory (capacity and status attributes).
type Sysfs struct {
	dir string
}

// NewSysfs returns a source for dir. An empty dir picks the first battery
// under DefaultRoot.
func NewSysfs(dir string) (*Sysfs, error) {
	if dir == "" {
		found, err := Detect(DefaultRoot)
		if err != nil {
			return nil, err
		}
		dir = found
	}
	return &Sysfs{dir: dir}, nil
}

// Detect returns the first supply under root whose type is Battery.
func Detect(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("failed to list power supplies: %w", err)
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		typ, err := readAttr(dir, "type")
		if err != nil {
			continue
		}
		if typ == "Battery" {
			return dir, nil
		}
	}
	return "", ErrNoBattery
}

// Dir returns the supply directory being read.
func (s *Sysfs) Dir() string {
	return s.dir
}

// Read samples capacity and status.
func (s *Sysfs) Read() (Reading, error) {
	raw, err := readAttr(s.dir, "capacity")
	if err != nil {
		return Reading{}, err
	}
	percent, err := strconv.Atoi(raw)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid capacity %q: %w", raw, err)
	}

	status, err := readAttr(s.dir, "status")
	if err != nil {
		return Reading{}, err
	}

	return Reading{
		Percent:  percent,
		Charging: status == "Charging" || status == "Full",
	}, nil
}

func readAttr(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Static always returns the same reading. Used on hosts without a battery.
type Static Reading

// Read returns the fixed reading.
func (s Static) Read() (Reading, error) {
	return Reading(s), nil
}

// Poller samples a source on an interval and reports readings that differ
// from the previous one.
type Poller struct {
	src      Source
	interval time.Duration
	onChange func(Reading)

	last    Reading
	hasLast bool
}

// NewPoller creates a poller. onChange runs on the polling goroutine.
func NewPoller(src Source, interval time.Duration, onChange func(Reading)) *Poller {
	return &Poller{src: src, interval: interval, onChange: onChange}
}

// Poll takes one sample and reports whether it changed. Read errors are
// logged and count as no change.
func (p *Poller) Poll() bool {
	r, err := p.src.Read()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read battery")
		return false
	}
	if p.hasLast && r == p.last {
		return false
	}
	p.last, p.hasLast = r, true

	log.Debug().Int("percent", r.Percent).Bool("charging", r.Charging).Msg("Battery changed")
	if p.onChange != nil {
		p.onChange(r)
	}
	return true
}

// Seed records r as the last reading without reporting it.
func (p *Poller) Seed(r Reading) {
	p.last, p.hasLast = r, true
}

// Last returns the most recent reading, if any.
func (p *Poller) Last() (Reading, bool) {
	return p.last, p.hasLast
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll()
		}
	}
}
