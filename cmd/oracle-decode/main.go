// Command oracle-decode fetches an oracle request object from the ledger and
// prints it in a readable form, including the hex-decoded response body and
// the assistant message inside an OpenAI-style response.
//
// Usage:
//
//	oracle-decode [--binary rooch] <object-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vinayprograms/oraclekit/inspect"
	"github.com/vinayprograms/oraclekit/ledger"
)

func main() {
	binary := flag.String("binary", "rooch", "ledger CLI executable")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: oracle-decode [--binary rooch] <object-id>")
		os.Exit(2)
	}
	objectID := flag.Arg(0)

	if err := run(*binary, objectID); err != nil {
		fmt.Fprintf(os.Stderr, "oracle-decode: %v\n", err)
		os.Exit(1)
	}
}

func run(binary, objectID string) error {
	// The client wants package and agent addresses for task listing; object
	// fetch ignores them, so placeholders are fine here.
	client, err := ledger.NewRoochClient(ledger.RoochConfig{
		PackageID:    "0x0",
		AgentAddress: "0x0",
		Binary:       binary,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("Fetching object data for %s...\n", objectID)
	raw, err := client.Object(ctx, objectID)
	if err != nil {
		return err
	}

	return inspect.Render(os.Stdout, raw)
}
