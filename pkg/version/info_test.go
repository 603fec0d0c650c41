package version

import (
	"testing"
)

func Test_makeVersionString(t *testing.T) {
	type args struct {
		version    string
		commitHash string
		snapshot   string
		os         string
		arch       string
	}
	tests := []struct {
		name     string
		args     args
		expected string
	}{
		{
			name: "Typical release",
			args: args{
				version:    "1.0.0",
				commitHash: "abc123",
				os:         "darwin",
				arch:       "amd64",
			},
			expected: "1.0.0(abc123)/darwin-amd64",
		},
		{
			name: "Snapshot build",
			args: args{
				version:    "1.0.0",
				commitHash: "abc123",
				snapshot:   "true",
				os:         "linux",
				arch:       "arm64",
			},
			expected: "1.0.0(abc123)-snapshot/linux-arm64",
		},
		{
			name: "No os or arch",
			args: args{
				version:    "1.0.0",
				commitHash: "abc123",
			},
			expected: "1.0.0(abc123)",
		},
		{
			name: "Os without arch",
			args: args{
				version:    "1.0.0",
				commitHash: "abc123",
				os:         "linux",
			},
			expected: "1.0.0(abc123)/linux",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := makeVersionString(tt.args.version, tt.args.commitHash, tt.args.snapshot, tt.args.os, tt.args.arch); got != tt.expected {
				t.Errorf("makeVersionString() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
