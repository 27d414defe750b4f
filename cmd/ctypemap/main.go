package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raymyers/ctypemap/pkg/abi"
	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var version = "0.1.0"

// ABI options, shared by every command
var (
	abiName     string
	abiConfig   string
	pointerSize int64
)

// Output options
var (
	format  string
	query   string
	dParse  bool
	verbose bool
)

// ErrUnitsFailed is returned when at least one unit did not resolve
var ErrUnitsFailed = errors.New("one or more units failed")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}

// normalizeFlags converts the single-dash -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		if arg == "-dparse" {
			result[i] = "--dparse"
			continue
		}
		result[i] = arg
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ctypemap [files...]",
		Short: "ctypemap resolves C declarations to their ABI layout",
		Long: `ctypemap reads C headers and sources, resolves every struct,
enum, typedef, #define, function and variable they declare, and prints
the resulting type model with sizes, offsets and storage kinds.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			switch format {
			case "yaml", "json", "text":
			default:
				fmt.Fprintf(errOut, "ctypemap: unknown format %q\n", format)
				return fmt.Errorf("unknown format %q", format)
			}
			if dParse {
				return doParse(args, out, errOut)
			}
			m, err := buildModel(cmd.Context(), args, errOut)
			if err != nil {
				return err
			}
			if query != "" {
				if err := runQuery(m, query, out); err != nil {
					fmt.Fprintf(errOut, "ctypemap: %v\n", err)
					return err
				}
			} else if err := writeModel(m, format, out); err != nil {
				fmt.Fprintf(errOut, "ctypemap: %v\n", err)
				return err
			}
			if m.Failed() {
				return ErrUnitsFailed
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	addABIFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Report progress per unit")

	rootCmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, json or text")
	rootCmd.Flags().StringVarP(&query, "query", "q", "", "jq expression applied to the JSON model")
	rootCmd.Flags().BoolVarP(&dParse, "dparse", "", false, "Dump after parsing")

	rootCmd.AddCommand(newSVGCmd(out, errOut))
	rootCmd.AddCommand(newWatchCmd(out, errOut))
	return rootCmd
}

func addABIFlags(fs *pflag.FlagSet) {
	fs.StringVar(&abiName, "abi", "ilp32", "ABI profile: "+strings.Join(abi.Profiles(), ", "))
	fs.StringVar(&abiConfig, "abi-config", "", "YAML file with an ABI width table")
	fs.Int64Var(&pointerSize, "pointer-size", 0, "Override the pointer width (4 or 8)")
}

// loadABI builds the ABI table from the command line flags
func loadABI() (abi.Config, error) {
	var cfg abi.Config
	var err error
	if abiConfig != "" {
		cfg, err = abi.Load(abiConfig)
	} else {
		cfg, err = abi.Profile(abiName)
	}
	if err != nil {
		return abi.Config{}, err
	}
	if pointerSize != 0 {
		cfg = cfg.WithPointerSize(pointerSize)
		if err := cfg.Validate(); err != nil {
			return abi.Config{}, err
		}
	}
	return cfg, nil
}

func readSources(files []string) ([]model.Source, error) {
	sources := make([]model.Source, 0, len(files))
	for _, name := range files {
		content, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", name, err)
		}
		sources = append(sources, model.Source{Name: name, Text: string(content)})
	}
	return sources, nil
}

// buildModel reads and resolves files, reporting unit errors on errOut.
// Failed units do not make it return an error; callers check m.Failed.
func buildModel(ctx context.Context, files []string, errOut io.Writer) (*model.Model, error) {
	cfg, err := loadABI()
	if err != nil {
		fmt.Fprintf(errOut, "ctypemap: %v\n", err)
		return nil, err
	}
	sources, err := readSources(files)
	if err != nil {
		fmt.Fprintf(errOut, "ctypemap: %v\n", err)
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := model.Build(ctx, sources, model.Options{ABI: cfg})
	if err != nil {
		fmt.Fprintf(errOut, "ctypemap: %v\n", err)
		return nil, err
	}
	for _, u := range m.Units {
		if verbose {
			status := "ok"
			if u.Failed() {
				status = "failed"
			}
			fmt.Fprintf(errOut, "ctypemap: %s: %d declarations, %s\n", u.Name, u.Decls, status)
		}
		for _, err := range u.Errors {
			fmt.Fprintf(errOut, "ctypemap: %v\n", err)
		}
	}
	return m, nil
}

// writeModel prints the model in the requested format
func writeModel(m *model.Model, format string, out io.Writer) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "text":
		for _, key := range m.Order {
			if e, ok := m.Lookup(key); ok {
				fmt.Fprintf(out, "%s: %s\n", key, e.Summary())
			}
		}
		return nil
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// doParse parses each file and prints its declarations back as C
func doParse(files []string, out, errOut io.Writer) error {
	sources, err := readSources(files)
	if err != nil {
		fmt.Fprintf(errOut, "ctypemap: %v\n", err)
		return err
	}
	var failed bool
	printer := cabs.NewPrinter(out)
	printer.Comments = true
	for _, src := range sources {
		u, err := model.Parse(src)
		if err != nil {
			fmt.Fprintf(errOut, "ctypemap: %v\n", err)
			failed = true
			continue
		}
		printer.PrintUnit(u)
	}
	if failed {
		return ErrUnitsFailed
	}
	return nil
}
