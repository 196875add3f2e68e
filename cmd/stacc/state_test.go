package main

import (
	"strings"
	"testing"

	"github.com/chazu/stacc/vm"
)

func TestWriteState(t *testing.T) {
	tests := []struct {
		name string
		snap vm.Snapshot
		want []string
	}{
		{
			name: "empty",
			snap: vm.Snapshot{},
			want: []string{
				"| Ident | Value |  | Stack |",
				"|-------|-------|  |-------|",
			},
		},
		{
			name: "longer stack",
			snap: vm.Snapshot{
				Variables: map[string]vm.Value{"x": vm.Number(5), "name": vm.String("stacc")},
				Stack:     []vm.Value{vm.Number(10), vm.Bool(true), vm.String("a longer value")},
			},
			want: []string{
				"| Ident | Value |  | Stack          |",
				"|-------|-------|  |----------------|",
				"| name  | stacc |  | 10             |",
				"| x     | 5     |  | true           |",
				"                   | a longer value |",
			},
		},
		{
			name: "more variables",
			snap: vm.Snapshot{
				Variables: map[string]vm.Value{"a": vm.Number(1), "b": vm.Number(2.5), "counter": vm.Number(3)},
				Stack:     []vm.Value{vm.Number(3)},
			},
			want: []string{
				"| Ident   | Value |  | Stack |",
				"|---------|-------|  |-------|",
				"| a       | 1     |  | 3     |",
				"| b       | 2.5   |",
				"| counter | 3     |",
			},
		},
		{
			name: "wide characters",
			snap: vm.Snapshot{
				Variables: map[string]vm.Value{"s": vm.String("日本語です")},
			},
			want: []string{
				"| Ident | Value      |  | Stack |",
				"|-------|------------|  |-------|",
				"| s     | 日本語です |",
			},
		},
	}
	for _, tc := range tests {
		var b strings.Builder
		writeState(&b, tc.snap)
		want := strings.Join(tc.want, "\n") + "\n"
		if b.String() != want {
			t.Errorf("%s: writeState =\n%s\nwant:\n%s", tc.name, b.String(), want)
		}
	}
}

func TestPad(t *testing.T) {
	tests := []struct {
		s    string
		w    int
		want string
	}{
		{"ab", 4, "ab  "},
		{"abcd", 2, "abcd"},
		{"", 3, "   "},
		{"日", 3, "日 "},
	}
	for _, tc := range tests {
		if got := pad(tc.s, tc.w); got != tc.want {
			t.Errorf("pad(%q, %d) = %q, want %q", tc.s, tc.w, got, tc.want)
		}
	}
}
