package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/kokkaisync/internal/config"
)

func TestDaysFlag(t *testing.T) {
	cfg = &config.Config{Kokkai: config.Kokkai{DaysBack: 3, Since: "2024-01-01"}}
	t.Cleanup(func() { cfg = nil })

	cases := []struct {
		args []string
		want int
	}{
		{nil, 0},
		{[]string{"--days"}, 3},
		{[]string{"--days=7"}, 7},
	}
	for _, tc := range cases {
		cmd := &cobra.Command{Use: "collect"}
		addWindowFlags(cmd)
		if err := cmd.ParseFlags(tc.args); err != nil {
			t.Fatalf("unexpected error for %v: %v", tc.args, err)
		}
		if got := windowOptions().DaysBack; got != tc.want {
			t.Errorf("%v: expected %d days, got %d", tc.args, tc.want, got)
		}
	}
}
