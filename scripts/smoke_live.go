//go:build integration
// +build integration

package scripts

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/context-relay/relay/config"
	"github.com/ZanzyTHEbar/context-relay/relay/harness"
)

// RunSmokeLive sends one web-search-enriched message through the real
// providers configured in the environment.
func RunSmokeLive(query string) {
	fmt.Println("Smoke test: live assemble")
	cfg, err := config.LoadConfig("")
	must(err, "config")
	cfg.Store.Backend = "none"

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	assembler, err := harness.NewFactory(cfg, config.KeyRingFromEnviron(os.Environ()), nil, logger).CreateAssembler()
	must(err, "assembler")

	res := assembler.Assemble(context.Background(), harness.Request{
		UserMessage:     query,
		EnableWebSearch: cfg.Search.APIKey != "",
		ThreadID:        "smoke",
	})
	if !res.OK() {
		log.Fatalf("assemble failed (%s): %s", res.Kind, res.Error)
	}
	fmt.Printf("OK: reply %s (%d chars)\n", res.Reply.ID, len(res.Reply.Message))
}
