// derive_key.go prints the public key, address and authentication key for a
// hex-encoded private key file.
// Usage: go run scripts/derive_key.go <keyfile> [ed25519|secp256k1]
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/identity"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> [ed25519|secp256k1]")
		os.Exit(1)
	}
	scheme := crypto.SchemeEd25519
	if len(os.Args) > 2 && strings.HasPrefix(os.Args[2], "secp256k1") {
		scheme = crypto.SchemeSecp256k1
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keyHex := strings.TrimPrefix(strings.TrimSpace(string(data)), "0x")
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	id, err := identity.FromPrivateKey(scheme, keyBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer id.Zero()
	fmt.Printf("scheme=%s\n", id.Scheme())
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(id.PublicKey()))
	fmt.Printf("address=%s\n", id.Address())
	fmt.Printf("auth_key=%s\n", id.AuthenticationKey())
}
