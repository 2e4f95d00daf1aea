package redis

import (
	"reflect"
	"testing"
)

func TestExtractKeys(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want []string
	}{
		{"no keys", []interface{}{"ping"}, nil},
		{"plain key", []interface{}{"get", "trip:feed:first:20"}, []string{"trip:feed:first:20"}},
		{"token key hidden", []interface{}{"get", "trip:token:refresh:u1"}, []string{"trip:***"}},
		{"non string skipped", []interface{}{"expire", "trip:msg:1", 30}, []string{"trip:msg:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractKeys(tt.args); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("extractKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}
