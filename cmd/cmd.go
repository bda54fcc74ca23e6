// Package cmd wires the jsonnet CLI. Import builtin packages via blank
// imports before calling Execute so they register their natives.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fabvit86/jsonnet-go/core"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/interp"
	"github.com/fabvit86/jsonnet-go/lexer"
	"github.com/fabvit86/jsonnet-go/parser"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Execute runs the jsonnet CLI with the given version string.
func Execute(version string) {
	cmd := &cli.Command{
		Name:                   "jsonnet",
		Usage:                  "Evaluate Jsonnet programs to JSON",
		Version:                version,
		UseShortOptionHandling: true,
		Flags:                  evalFlags(),
		// Allow `jsonnet file.jsonnet` as shorthand for `jsonnet run file.jsonnet`
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				return runAction(ctx, cmd)
			}
			return cli.DefaultShowRootCommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Evaluate a .jsonnet file and print the result",
				ArgsUsage: "<file.jsonnet>",
				Flags:     evalFlags(),
				Action:    runAction,
			},
			{
				Name:      "check",
				Usage:     "Parse and desugar a file, reporting diagnostics only",
				ArgsUsage: "<file.jsonnet>",
				Action:    checkAction,
			},
			{
				Name:      "tokens",
				Usage:     "Dump the token stream of a file",
				ArgsUsage: "<file.jsonnet>",
				Action:    tokensAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

func evalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: json or yaml",
			Value:   "json",
		},
		&cli.BoolFlag{
			Name:    "string",
			Aliases: []string{"S"},
			Usage:   "Expect a string result and print it raw",
		},
		&cli.StringSliceFlag{
			Name:    "ext-str",
			Aliases: []string{"V"},
			Usage:   "External variable: name=value (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "jpath",
			Aliases: []string{"J"},
			Usage:   "Additional library search path (repeatable)",
		},
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: jsonnet run <file.jsonnet>")
	}
	extVars := map[string]string{}
	for _, kv := range cmd.StringSlice("ext-str") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --ext-str %q, expected name=value", kv)
		}
		extVars[name] = value
	}

	searchPaths := cmd.StringSlice("jpath")
	if jp := os.Getenv("JSONNET_PATH"); jp != "" {
		searchPaths = append(searchPaths, filepath.SplitList(jp)...)
	}

	it := interp.New(interp.Options{
		Importer: &parser.FileImporter{SearchPaths: searchPaths},
		ExtVars:  extVars,
	})
	tree, err := it.EvaluateFile(cmd.Args().First())
	if err != nil {
		return err
	}

	if cmd.Bool("string") {
		s, ok := tree.(string)
		if !ok {
			return fmt.Errorf("--string given but the program did not evaluate to a string")
		}
		fmt.Println(s)
		return nil
	}

	switch cmd.String("format") {
	case "json":
		out, err := interp.EncodeJSON(tree, "  ")
		if err != nil {
			return err
		}
		fmt.Println(out)
	case "yaml":
		out, err := yaml.Marshal(tree)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	default:
		return fmt.Errorf("unknown format %q, expected json or yaml", cmd.String("format"))
	}
	return nil
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: jsonnet check <file.jsonnet>")
	}
	path := cmd.Args().First()
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	node, err := parser.Parse(string(source), path)
	if err != nil {
		return err
	}
	core.Desugar(node)
	fmt.Printf("%s: OK\n", path)
	return nil
}

func tokensAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: jsonnet tokens <file.jsonnet>")
	}
	path := cmd.Args().First()
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tokens, err := lexer.Tokenize(string(source), path)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		fmt.Printf("%s\t%s\n", tok.Span, lexer.Describe(tok))
	}
	return nil
}

// renderError formats pipeline diagnostics with color when stderr is a
// terminal; other errors print their message after an "error: " prefix.
func renderError(err error) string {
	de, ok := err.(*diag.Error)
	if !ok {
		return "error: " + err.Error()
	}
	color := term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == ""
	if os.Getenv("JSONNET_FORCE_COLOR") != "" {
		color = true
	}
	return diag.Format(de, color)
}
