package reconcile

import (
	"fmt"
	"strconv"
	"strings"
)

const partitionBaseYear = 2000

// NextID returns the next free student identifier for a graduation-year
// partition: one past the highest existing ID, or (year-2000)*100 when the
// partition has no usable IDs yet.
func NextID(partition string, existing []StoredRecord) (int, error) {
	highest := 0
	for _, rec := range existing {
		if rec.ID > highest {
			highest = rec.ID
		}
	}
	if highest > 0 {
		return highest + 1, nil
	}
	year, err := strconv.Atoi(strings.TrimSpace(partition))
	if err != nil {
		return 0, fmt.Errorf("partition %q is not a graduation year: %w", partition, err)
	}
	if year <= partitionBaseYear {
		return 0, fmt.Errorf("partition %q predates %d", partition, partitionBaseYear)
	}
	return (year - partitionBaseYear) * 100, nil
}
