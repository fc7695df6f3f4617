// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metrics

import (
	"context"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// parseTimeout bounds tree-sitter parsing on pathological input.
const parseTimeout = 2 * time.Second

// SyntaxValidity scores how syntactically well-formed a code
// prediction is.
//
// Description:
//
//	The code is parsed with tree-sitter and ERROR/MISSING nodes are
//	counted against the total named-node count:
//	score = 1 - errorNodes/namedNodes. A clean parse scores 1.0.
//
// Inputs:
//   - code: The code to check.
//   - language: One of go, python, javascript, typescript, rust, bash.
//
// Outputs:
//   - float64: Score in [0, 1]. Empty code, an unsupported language,
//     or a parser failure all score 0.0 (sentinel, not an error).
func SyntaxValidity(code, language string) float64 {
	if code == "" {
		return 0.0
	}
	tsLang := treeSitterLanguage(language)
	if tsLang == nil {
		return 0.0
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)

	ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
	defer cancel()

	tree, err := parser.ParseCtx(ctx, nil, []byte(code))
	if err != nil || tree == nil {
		return 0.0
	}
	defer tree.Close()

	named, errored := countNodes(tree.RootNode(), 0)
	if named == 0 {
		return 0.0
	}
	if errored >= named {
		return 0.0
	}
	return 1.0 - float64(errored)/float64(named)
}

// treeSitterLanguage maps a language name to its grammar.
func treeSitterLanguage(lang string) *sitter.Language {
	switch Normalize(lang) {
	case "go", "golang":
		return golang.GetLanguage()
	case "python", "py":
		return python.GetLanguage()
	case "javascript", "js":
		return javascript.GetLanguage()
	case "typescript", "ts":
		return typescript.GetLanguage()
	case "rust", "rs":
		return rust.GetLanguage()
	case "bash", "sh":
		return bash.GetLanguage()
	default:
		return nil
	}
}

// countNodes walks the tree counting named nodes and ERROR/MISSING
// nodes. Depth is capped to avoid blowing the stack on malformed
// input.
func countNodes(node *sitter.Node, depth int) (named, errored int) {
	if node == nil || depth > 1000 {
		return 0, 0
	}

	if node.IsNamed() {
		named = 1
	}
	if node.IsError() || node.IsMissing() {
		errored = 1
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		n, e := countNodes(node.Child(i), depth+1)
		named += n
		errored += e
	}
	return named, errored
}
