package main

import "testing"

func TestParseMoveArgs(t *testing.T) {
	cases := []struct {
		args     []string
		from, to string
		ok       bool
	}{
		{[]string{"E2", "e4"}, "e2", "e4", true},
		{[]string{"g1f3"}, "g1", "f3", true},
		{[]string{"e7e8q"}, "e7", "e8", true},
		{[]string{"e2"}, "", "", false},
		{nil, "", "", false},
	}
	for _, tc := range cases {
		from, to, err := parseMoveArgs(tc.args)
		if (err == nil) != tc.ok {
			t.Fatalf("parseMoveArgs(%v) err=%v, want ok=%v", tc.args, err, tc.ok)
		}
		if from != tc.from || to != tc.to {
			t.Fatalf("parseMoveArgs(%v) = %s,%s, want %s,%s", tc.args, from, to, tc.from, tc.to)
		}
	}
}
