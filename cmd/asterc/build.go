package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/aster-lang/aster/builder"
	"github.com/aster-lang/aster/compiler"
	"github.com/aster-lang/aster/ir"
)

var (
	buildOpts = struct {
		manifest string
		output   string
		target   string
		buildDir string
		runtime  string
		jobs     int
		release  bool
		writeIR  bool
		verify   bool
		noLink   bool
	}{}

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the project described by aster.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := builder.LoadManifest(buildOpts.manifest)
			if err != nil {
				return err
			}

			name := buildOpts.target
			if name == "" {
				name = manifest.Package.Target
			}
			target, err := builder.ResolveTarget(name)
			if err != nil {
				return err
			}

			output := buildOpts.output
			if output == "" {
				output = manifest.Package.Output
			}
			if buildOpts.noLink {
				output = ""
			}

			options := builder.Options{
				Target:    target,
				Verbosity: verbosity(),
				BuildDir:  buildOpts.buildDir,
				Output:    output,
				Runtime:   buildOpts.runtime,
				NumJobs:   buildOpts.jobs,
				WriteIR:   buildOpts.writeIR,
				Verify:    buildOpts.verify,
			}
			if buildOpts.release {
				options.Optimization = compiler.OptRelease
			}

			program, err := loadProgram(manifest.Package.Entry)
			if err != nil {
				return err
			}

			result, err := builder.Build(program, options)
			if err != nil {
				return err
			}

			if result.Executable != "" {
				fmt.Println(result.Executable)
			}
			return nil
		},
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildOpts.manifest, "manifest", "m", "aster.toml", "project manifest")
	buildCmd.Flags().StringVarP(&buildOpts.output, "output", "o", "", "output executable")
	buildCmd.Flags().StringVarP(&buildOpts.target, "target", "t", "", "target name, see asterc targets")
	buildCmd.Flags().StringVar(&buildOpts.buildDir, "build-dir", "build", "directory for objects and the build cache")
	buildCmd.Flags().StringVar(&buildOpts.runtime, "runtime", "", "path to the runtime static library")
	buildCmd.Flags().IntVarP(&buildOpts.jobs, "jobs", "j", runtime.NumCPU(), "number of concurrent module builds")
	buildCmd.Flags().BoolVar(&buildOpts.release, "release", false, "optimize for release")
	buildCmd.Flags().BoolVar(&buildOpts.writeIR, "write-ir", false, "write textual IR next to each object")
	buildCmd.Flags().BoolVar(&buildOpts.verify, "verify", false, "run the module verifier on generated code")
	buildCmd.Flags().BoolVar(&buildOpts.noLink, "no-link", false, "emit objects without linking")
}

// loadProgram turns an entry module into whole-program IR. The frontend that
// lowers source to IR ships separately; until it lands here, programs are
// built through the builder API as in examples/.
func loadProgram(entry string) (*ir.Program, error) {
	return nil, fmt.Errorf("loading %q requires the source frontend; build programs through the builder API", entry)
}
