package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carmc/carmc"
	"github.com/carmc/carmc/internal/ast"
	"github.com/carmc/carmc/internal/codegen"
	"github.com/carmc/carmc/internal/ir"
	"github.com/carmc/carmc/internal/lexer"
	"github.com/carmc/carmc/internal/parser"
	"github.com/carmc/carmc/internal/sema"
)

var (
	outputFile string
	targetName string
	dumpTokens bool
	dumpAST    bool
	dumpIR     bool
)

var rootCmd = &cobra.Command{
	Use:   "carmc",
	Short: "C subset to ARM32 assembly compiler",
	Long:  "Compiles a small C subset to textual ARM32 assembly.",
}

var buildCmd = &cobra.Command{
	Use:   "build <file.c>... | <directory>",
	Short: "Compile source files to assembly",
	Long:  "Compile one or more .c source files, or a directory containing .c files, to .s assembly files.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sourceFiles []string

		// A single argument may be a directory; multiple arguments must
		// all be files.
		if len(args) == 1 {
			arg := args[0]
			if stat, err := os.Stat(arg); err != nil {
				return fmt.Errorf("path %s does not exist", arg)
			} else if stat.IsDir() {
				files, err := findSourceFiles(arg)
				if err != nil {
					return fmt.Errorf("failed to find .c files in directory %s: %w", arg, err)
				}
				if len(files) == 0 {
					return fmt.Errorf("no .c files found in directory %s", arg)
				}
				sourceFiles = files
			} else {
				sourceFiles = []string{arg}
			}
		} else {
			for _, arg := range args {
				if stat, err := os.Stat(arg); err != nil {
					return fmt.Errorf("file %s does not exist", arg)
				} else if stat.IsDir() {
					return fmt.Errorf("cannot mix directories and files in build arguments")
				}
			}
			sourceFiles = args
		}

		// Each source file becomes its own assembly file, so a custom
		// output name only makes sense for a single input.
		if len(sourceFiles) > 1 && outputFile != "" {
			return fmt.Errorf("output file (-o) is only valid when compiling a single file")
		}

		opts, err := resolveOptions(cmd, filepath.Dir(sourceFiles[0]))
		if err != nil {
			return err
		}
		// A manifest output path would make every file in a multi-file
		// build overwrite the same artifact.
		if len(sourceFiles) > 1 {
			opts.Output = ""
		}

		failed := false
		for _, file := range sourceFiles {
			if err := compileFile(file, opts); err != nil {
				failed = true
			}
		}
		if failed {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return fmt.Errorf("compilation failed")
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&outputFile, "o", "o", "", "output file name")
	buildCmd.Flags().StringVar(&targetName, "target", "", "target name (default arm32-linux)")
	buildCmd.Flags().BoolVar(&dumpTokens, "dump-tokens", false, "print the token stream to stdout")
	buildCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "print the syntax tree to stdout")
	buildCmd.Flags().BoolVar(&dumpIR, "dump-ir", false, "print the intermediate representation to stdout")
	rootCmd.AddCommand(buildCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildOptions is the merged view of the carmc.toml manifest and the
// command-line flags. Flags win over the manifest.
type buildOptions struct {
	Output     string
	DumpTokens bool
	DumpAST    bool
	DumpIR     bool
}

// resolveOptions loads the manifest next to the sources, if one exists, and
// overlays any flags the user set explicitly.
func resolveOptions(cmd *cobra.Command, sourceDir string) (buildOptions, error) {
	opts := buildOptions{
		Output:     outputFile,
		DumpTokens: dumpTokens,
		DumpAST:    dumpAST,
		DumpIR:     dumpIR,
	}

	name := targetName
	manifest, err := loadManifest(sourceDir)
	if err != nil {
		return opts, fmt.Errorf("failed to read %s: %w", manifestFileName, err)
	}
	if manifest != nil {
		if opts.Output == "" {
			opts.Output = manifest.Output
		}
		if name == "" {
			name = manifest.Target
		}
		if !cmd.Flags().Changed("dump-tokens") {
			opts.DumpTokens = manifest.DumpTokens
		}
		if !cmd.Flags().Changed("dump-ast") {
			opts.DumpAST = manifest.DumpAST
		}
		if !cmd.Flags().Changed("dump-ir") {
			opts.DumpIR = manifest.DumpIR
		}
	}

	// Only one target exists today, but reject unknown names early
	// instead of silently compiling for the default.
	if name != "" {
		if _, err := codegen.TargetFromName(name); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// findSourceFiles scans a directory for .c files.
func findSourceFiles(dir string) ([]string, error) {
	var sourceFiles []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".c") {
			sourceFiles = append(sourceFiles, filepath.Join(dir, entry.Name()))
		}
	}

	return sourceFiles, nil
}

// compileFile compiles a single source file to an assembly file. Diagnostics
// go to the terminal; a non-nil return only signals that the build failed.
func compileFile(path string, opts buildOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		printError(path, err)
		return err
	}
	source := string(data)

	if opts.DumpTokens || opts.DumpAST || opts.DumpIR {
		dumpStages(source, opts)
	}

	result := carmc.Compile(source)
	if !result.Success {
		for _, d := range result.Diagnostics {
			printDiagnostic(path, d)
		}
		return fmt.Errorf("compilation of %s failed: %s", path, result.FirstError())
	}

	asmFile := opts.Output
	if asmFile == "" {
		asmFile = strings.TrimSuffix(path, ".c") + ".s"
	}
	if err := os.WriteFile(asmFile, []byte(result.Assembly), 0o644); err != nil {
		printError(path, err)
		return err
	}

	printSuccess(fmt.Sprintf("%s -> %s", path, asmFile))
	return nil
}

// dumpStages reruns the front-end stages and prints the requested
// intermediate artifacts. Stage errors are left for the real compilation
// to report, so a dump after a failing stage simply prints nothing.
func dumpStages(source string, opts buildOptions) {
	tokens, lexErr := lexer.New(strings.NewReader(source)).Tokenize()
	if lexErr != nil {
		return
	}
	if opts.DumpTokens {
		for _, t := range tokens {
			fmt.Println(t)
		}
	}

	if !opts.DumpAST && !opts.DumpIR {
		return
	}
	prog, synErr := parser.Parse(tokens)
	if synErr != nil {
		return
	}
	if opts.DumpAST {
		ast.Print(os.Stdout, prog)
	}

	if !opts.DumpIR {
		return
	}
	if _, semErrs := sema.NewAnalyzer().Analyze(prog); len(semErrs) > 0 {
		return
	}
	fmt.Print(ir.Build(prog).String())
}
