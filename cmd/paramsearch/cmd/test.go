package cmd

import "fmt"

// runTest implements the --test mode. Go has no runtime test-discovery
// mechanism to embed in a shipped binary, so this mode points operators
// at the standard `go test` toolchain.
func runTest() error {
	fmt.Println("paramsearch has no embedded test runner; run `go test ./...` from the module root instead.")
	return nil
}
