package timestamp

import (
	"bytes"
	"math"
	"testing"
)

func TestBytesOrder(t *testing.T) {
	ts := []T{math.MinInt64, math.MinInt32, -86400, -1, 0, 1, 1700000000,
		math.MaxInt64}
	for i, v := range ts {
		if got := FromBytes(v.Bytes()); got != v {
			t.Fatalf("%d decoded as %d", v, got)
		}
		if i == 0 {
			continue
		}
		if bytes.Compare(ts[i-1].Bytes(), v.Bytes()) >= 0 {
			t.Fatalf("%d does not sort before %d", ts[i-1], v)
		}
	}
}
