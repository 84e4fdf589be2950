// Command jsonpath is a small debugging shell over the jsonpath engine.
// It owns none of the engine's semantics — program entry and option
// parsing are deliberately kept outside the core package.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/nchilds-labs/jsonpath"
)

var (
	flagFile     string
	flagResult   string
	flagFlatten  bool
	flagNoWrap   bool
	flagEval     string
	flagMaxDepth int
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "jsonpath <expression>",
		Short: "Query a JSON document with a JSONPath expression",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	flags := root.Flags()
	flags.StringVarP(&flagFile, "file", "f", "-", "JSON document to query ('-' for stdin)")
	flags.StringVar(&flagResult, "result", "value", "result shape: value|path|pointer|parent|parentProperty|all")
	flags.BoolVar(&flagFlatten, "flatten", false, "flatten one level of nested array results")
	flags.BoolVar(&flagNoWrap, "no-wrap", false, "return a single non-multi-match result unwrapped")
	flags.StringVar(&flagEval, "eval", "safe", "expression backend for filter/script steps: safe|native|off")
	flags.IntVar(&flagMaxDepth, "max-depth", 100, "max descendant (..) recursion depth, 0 = unlimited")
	flags.StringVar(&flagLogLevel, "log-level", "warn", "log level: trace|debug|info|warn|error|off")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "jsonpath",
		Level: hclog.LevelFromString(flagLogLevel),
	})

	data, err := readDocument(flagFile)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	opts := []jsonpath.Option{
		jsonpath.WithLogger(logger),
		jsonpath.WithResultType(jsonpath.ResultType(flagResult)),
		jsonpath.WithFlatten(flagFlatten),
		jsonpath.WithWrap(!flagNoWrap),
		jsonpath.WithMaxDepth(flagMaxDepth),
	}
	switch flagEval {
	case "safe":
		opts = append(opts, jsonpath.WithSafeEval())
	case "native":
		opts = append(opts, jsonpath.WithNativeEval())
	case "off":
		opts = append(opts, jsonpath.WithEvalDisabled())
	default:
		return fmt.Errorf("unknown --eval backend %q", flagEval)
	}

	result, err := jsonpath.Query(data, args[0], opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readDocument(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
