package fonts

import "testing"

func TestLoad(t *testing.T) {
	set, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if set.Time == nil || set.Date == nil || set.Temperature == nil || set.Glyph == nil {
		t.Fatalf("Load() returned incomplete set %+v", set)
	}
	if set.Time.Metrics().Height <= set.Date.Metrics().Height {
		t.Error("time face should be taller than the date face")
	}
}
