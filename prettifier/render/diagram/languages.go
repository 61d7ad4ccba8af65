// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package diagram

// Language describes how one fence tag is rendered.
type Language struct {
	Tag         string
	DisplayName string
	// KrokiType is the Kroki diagram type; empty when Kroki cannot render it.
	KrokiType string
	// Command is the local CLI; empty when there is no local tool.
	Command string
	// Args may contain stdinPath / stdoutPath, which are replaced with
	// temporary files for tools that cannot use pipes.
	Args []string
}

const (
	stdinPath  = "/dev/stdin"
	stdoutPath = "/dev/stdout"
)

// DefaultLanguages returns the built-in fence tags keyed by tag.
func DefaultLanguages() map[string]Language {
	list := []Language{
		{Tag: "mermaid", DisplayName: "Mermaid", KrokiType: "mermaid", Command: "mmdc",
			Args: []string{"-i", stdinPath, "-o", stdoutPath, "-e", "png"}},
		{Tag: "plantuml", DisplayName: "PlantUML", KrokiType: "plantuml", Command: "plantuml",
			Args: []string{"-tpng", "-pipe"}},
		{Tag: "graphviz", DisplayName: "GraphViz", KrokiType: "graphviz", Command: "dot", Args: []string{"-Tpng"}},
		{Tag: "dot", DisplayName: "GraphViz", KrokiType: "graphviz", Command: "dot", Args: []string{"-Tpng"}},
		{Tag: "d2", DisplayName: "D2", KrokiType: "d2", Command: "d2", Args: []string{"-", "-"}},
		{Tag: "ditaa", DisplayName: "Ditaa", KrokiType: "ditaa"},
		{Tag: "svgbob", DisplayName: "SvgBob", KrokiType: "svgbob"},
		{Tag: "erd", DisplayName: "Erd", KrokiType: "erd"},
		{Tag: "vegalite", DisplayName: "Vega-Lite", KrokiType: "vegalite"},
		{Tag: "wavedrom", DisplayName: "WaveDrom", KrokiType: "wavedrom"},
		{Tag: "excalidraw", DisplayName: "Excalidraw", KrokiType: "excalidraw"},
	}
	out := make(map[string]Language, len(list))
	for _, l := range list {
		out[l.Tag] = l
	}
	return out
}
