// derive_identity.go prints the ledger identity a handle would receive if it
// registered at a given instant. Useful for reproducing identities in test
// fixtures.
// Usage: go run scripts/derive_identity.go <handle> [unix-seconds]
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nexus-share/nexus-ledger/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_identity <handle> [unix-seconds]")
		os.Exit(1)
	}
	at := time.Now()
	if len(os.Args) > 2 {
		secs, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		at = time.Unix(secs, 0)
	}
	fmt.Println(crypto.DeriveIdentity(os.Args[1], at))
}
