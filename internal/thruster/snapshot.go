package thruster

import (
	"fmt"
	"os"
)

// DefaultSnapshotPath is where the accessory snapshot lives between a clean
// shutdown and the next start.
const DefaultSnapshotPath = "/tmp/rov_led_state.dat"

// SaveSnapshot persists the accessory states as a fixed five-byte record.
// Written only on clean shutdown; a crash deliberately loses the states.
func SaveSnapshot(path string, states [NumAccessories]AccessoryState) error {
	record := make([]byte, NumAccessories)
	for i, s := range states {
		record[i] = byte(s)
	}
	if err := os.WriteFile(path, record, 0o644); err != nil {
		return fmt.Errorf("save accessory snapshot %q: %w", path, err)
	}
	return nil
}

// ConsumeSnapshot reads and deletes the snapshot file. The second return is
// false when no usable snapshot existed; the file is removed either way so a
// stale or corrupt record never survives into a second boot.
func ConsumeSnapshot(path string) ([NumAccessories]AccessoryState, bool) {
	var states [NumAccessories]AccessoryState

	record, err := os.ReadFile(path)
	if err != nil {
		return states, false
	}
	defer os.Remove(path)

	if len(record) < NumAccessories {
		return states, false
	}
	for i := range states {
		states[i] = StateFromByte(record[i])
	}
	return states, true
}
