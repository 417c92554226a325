//go:build integration
// +build integration

package scripts

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/context-relay/relay/db"
	"github.com/ZanzyTHEbar/context-relay/relay/harness/adapters"
	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
)

func must(err error, msg string) {
	if err != nil {
		log.Fatalf("%s: %v", msg, err)
	}
}

// RunSmokeStore round-trips a thread through both conversation store backends.
func RunSmokeStore() {
	fmt.Println("Smoke test: conversation stores")
	ctx := context.Background()
	tmp, err := os.MkdirTemp("", "relay-smoke-*")
	must(err, "tempdir")
	defer os.RemoveAll(tmp)

	conn, err := db.Connect(ctx, db.Config{DSN: "file:" + filepath.Join(tmp, "smoke.db"), DataDir: tmp}, zerolog.Nop())
	must(err, "connect")
	defer conn.Close()

	var v int
	must(conn.QueryRow("SELECT 1").Scan(&v), "basic SELECT")
	if v != 1 {
		log.Fatalf("basic SELECT returned %v", v)
	}
	fmt.Println("OK: basic SQL")

	var jsonRes string
	must(conn.QueryRow("SELECT json_extract('{\"test\":\"value\"}', '$.test')").Scan(&jsonRes), "JSON1 query")
	if jsonRes != "value" {
		log.Fatalf("JSON1 returned unexpected: %v", jsonRes)
	}
	fmt.Println("OK: JSON1")

	jsonStore, err := adapters.NewJSONFileStore(filepath.Join(tmp, "contexts"))
	must(err, "json store")

	stores := map[string]ports.ConversationStore{
		"libsql": adapters.NewLibSQLConversationStore(conn),
		"json":   jsonStore,
	}
	for name, store := range stores {
		must(store.Append(ctx, "smoke",
			ports.Turn{Role: ports.RoleUser, Content: "ping"},
			ports.Turn{Role: ports.RoleAssistant, Content: "pong"},
		), name+" append")
		turns, err := store.Load(ctx, "smoke")
		must(err, name+" load")
		if len(turns) != 2 || turns[1].Content != "pong" {
			log.Fatalf("%s returned unexpected turns: %+v", name, turns)
		}
		must(store.Clear(ctx, "smoke"), name+" clear")
		fmt.Printf("OK: %s store round trip\n", name)
	}

	fmt.Println("Smoke checks completed.")
}
