//go:build integration
// +build integration

package scripts

import (
	"os"
	"testing"
)

func TestScriptsIntegration(t *testing.T) {
	if os.Getenv("RUN_SCRIPTS_TESTS") == "" {
		t.Skip("skipping integration test; set RUN_SCRIPTS_TESTS=1 to run")
	}

	t.Run("SmokeStore", func(t *testing.T) {
		RunSmokeStore()
	})

	t.Run("SmokeLive", func(t *testing.T) {
		if os.Getenv("DEEPSEEK_API_KEY") == "" {
			t.Skip("set DEEPSEEK_API_KEY to call the completion provider")
		}
		RunSmokeLive("What is the tallest mountain in Europe?")
	})
}
