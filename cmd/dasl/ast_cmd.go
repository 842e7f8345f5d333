package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daslang/dasl/ast"
	"github.com/daslang/dasl/parser"
)

func newASTCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "ast <file>",
		Short: "Print the AST of a DASL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			program, err := parser.Parse(string(source), parser.WithFilename(args[0]))
			if err != nil {
				printParseError(err)
				return fmt.Errorf("%s: parse failed", args[0])
			}
			if output == "json" {
				return printJSON(program)
			}
			printTree(program)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text or json)")
	return cmd
}

func printTree(program *ast.Program) {
	for i, stmt := range program.Stmts {
		pos := ""
		if i < len(program.Spans) {
			span := program.Spans[i]
			pos = fmt.Sprintf("%d:%d ", span.Line, span.Column)
		}
		fmt.Printf("%s%s %s\n", pos, nodeType(stmt), stmt.String())
	}
}

// jsonNode is the JSON shape of one AST node: its type name, its string
// rendering, and its children in walk order.
type jsonNode struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

func printJSON(program *ast.Program) error {
	root := &jsonNode{Type: "Program"}
	for _, stmt := range program.Stmts {
		root.Children = append(root.Children, toJSONNode(stmt))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}

func toJSONNode(node ast.Node) *jsonNode {
	out := &jsonNode{Type: nodeType(node), Text: node.String()}
	skippedSelf := false
	ast.Inspect(node, func(n ast.Node) bool {
		if !skippedSelf {
			skippedSelf = true
			return true
		}
		out.Children = append(out.Children, toJSONNode(n))
		return false
	})
	return out
}

func nodeType(node ast.Node) string {
	name := reflect.TypeOf(node).String()
	return strings.TrimPrefix(name, "*ast.")
}
