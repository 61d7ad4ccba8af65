// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import "github.com/framegrace/prettify/internal/cli"

func main() {
	cli.Execute()
}
