package model

import (
	"encoding/json"
	"testing"
)

func TestLooseString_AcceptsStringAndNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"строка", `{"total":"149.50"}`, "149.50"},
		{"число", `{"total":149.5}`, "149.5"},
		{"целое", `{"total":10}`, "10"},
		{"null", `{"total":null}`, ""},
		{"поле отсутствует", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Order
			if err := json.Unmarshal([]byte(tt.in), &o); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if string(o.Total) != tt.want {
				t.Fatalf("Total = %q, want %q", o.Total, tt.want)
			}
		})
	}
}
