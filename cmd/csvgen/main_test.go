package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/OFFIS-RIT/kgchat/pkg/logger"
	"github.com/OFFIS-RIT/kgchat/pkg/logger/console"

	"github.com/stretchr/testify/assert"
)

func TestExecuteReportsCommandLineErrors(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"extract", "--bogus", "x"}, want: "unknown flag: --bogus"},
		{name: "unknown command", args: []string{"extrct"}, want: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Output: &out}))

			code := execute(context.Background(), tt.args)
			assert.Equal(t, 1, code)
			assert.Contains(t, out.String(), "csvgen failed")
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
