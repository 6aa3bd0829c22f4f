package models

import (
	"encoding/json"
	"testing"
)

func TestFlexID(t *testing.T) {
	t.Run("UnmarshalJSON", func(t *testing.T) {
		tc := []struct {
			name string
			raw  string
			want FlexID
		}{
			{name: "number", raw: `{"syobocal_tid": 3549}`, want: "3549"},
			{name: "string", raw: `{"syobocal_tid": "3549"}`, want: "3549"},
			{name: "padded string", raw: `{"syobocal_tid": " 3549 "}`, want: "3549"},
			{name: "null", raw: `{"syobocal_tid": null}`, want: ""},
			{name: "empty string", raw: `{"syobocal_tid": ""}`, want: ""},
			{name: "absent", raw: `{}`, want: ""},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				var work Work
				if err := json.Unmarshal([]byte(tt.raw), &work); err != nil {
					t.Fatalf("unmarshal failed: %v", err)
				}
				if work.SyobocalTID != tt.want {
					t.Errorf("expected %q, got %q", tt.want, work.SyobocalTID)
				}
			})
		}
	})

	t.Run("IsZero", func(t *testing.T) {
		if !FlexID("").IsZero() {
			t.Error("empty id should be zero")
		}
		if !FlexID("0").IsZero() {
			t.Error("numeric zero should be zero")
		}
		if FlexID("3549").IsZero() {
			t.Error("real id should not be zero")
		}
	})
}
