// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/snep/snep/cmd/snep"

func main() {
	cmd.Execute()
}
