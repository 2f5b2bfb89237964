package main

import "testing"

func TestParseFlags(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"default up", nil, false},
		{"status", []string{"-cmd=status"}, false},
		{"create needs name", []string{"-cmd=create"}, true},
		{"create", []string{"-cmd=create", "-name=add_notes"}, false},
		{"version needs target", []string{"-cmd=version"}, true},
		{"unknown", []string{"-cmd=reset"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := parseFlags(tc.args)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parseFlags(%v) err=%v wantErr=%v", tc.args, err, tc.wantErr)
			}
			if err == nil && opts.dir == "" {
				t.Fatal("expected default dir")
			}
		})
	}
}
