// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package prettifier

// Built-in renderers register their factories from init.
import (
	_ "github.com/framegrace/prettify/prettifier/render/csv"
	_ "github.com/framegrace/prettify/prettifier/render/diagram"
	_ "github.com/framegrace/prettify/prettifier/render/diff"
	_ "github.com/framegrace/prettify/prettifier/render/jsontree"
	_ "github.com/framegrace/prettify/prettifier/render/logs"
	_ "github.com/framegrace/prettify/prettifier/render/markdown"
	_ "github.com/framegrace/prettify/prettifier/render/sqlresults"
	_ "github.com/framegrace/prettify/prettifier/render/stacktrace"
	_ "github.com/framegrace/prettify/prettifier/render/table"
	_ "github.com/framegrace/prettify/prettifier/render/tomltree"
	_ "github.com/framegrace/prettify/prettifier/render/xmltree"
	_ "github.com/framegrace/prettify/prettifier/render/yamltree"
)
