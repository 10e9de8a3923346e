// Command cvendor builds a vendored autotools library and prints the
// directives needed to link it statically.
package main

import "github.com/goplus/cvendor/cmd/cvendor/internal"

func main() {
	internal.Execute()
}
