package cache

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestStrategy_Valid(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     bool
	}{
		{StrategyExplicit, true},
		{StrategyAll, true},
		{Strategy(""), false},
		{Strategy("sometimes"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			if got := tt.strategy.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

type codecRow struct {
	ID        int64
	Name      string
	Age       *int32
	CreatedAt time.Time
}

func TestMsgpackCodec_RoundTrip(t *testing.T) {
	codec := NewMsgpackCodec()
	age := int32(31)

	rows := []codecRow{
		{ID: 1, Name: "test", Age: &age, CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: 2, Name: "other"},
	}

	data, err := codec.Marshal(rows)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded []codecRow
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if diff := cmp.Diff(rows, decoded); diff != "" {
		t.Errorf("rows mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestMsgpackCodec_DecodeError(t *testing.T) {
	codec := NewMsgpackCodec()

	var decoded []codecRow
	if err := codec.Unmarshal([]byte{0xc1}, &decoded); err == nil {
		t.Fatal("expected decode error for invalid payload")
	}
}
