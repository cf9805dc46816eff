package floor

import (
	"fmt"
	"strconv"
	"time"
)

func (s *Service) nowUTC() time.Time {
	return s.now().UTC()
}

func (s *Service) nowUTCString() string {
	return s.nowUTC().Format(time.RFC3339Nano)
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func cacheSlipStatusKey(slipID uint64) string {
	return "slip_status:" + strconv.FormatUint(slipID, 10)
}

func cacheTableOccupancyKey(tableID uint64) string {
	return "table_occupancy:" + strconv.FormatUint(tableID, 10)
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func intString(v int) string {
	return strconv.Itoa(v)
}

func int64String(v int64) string {
	return strconv.FormatInt(v, 10)
}

func optInt64String(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func uintPtr(v uint64) *uint64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func derefInt(ptr *int) int {
	if ptr == nil {
		return 0
	}
	return *ptr
}

func seatLabel(tableID uint64, seat int) string {
	return fmt.Sprintf("table %d seat %d", tableID, seat)
}
