// Command jvmcore runs a single Java class's public static void main, the
// way the java launcher does, against a classpath of directories, .jar
// files, and .jmod files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jvmcore/pkg/vm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var classpath []string
	var bootClasspath []string

	cmd := &cobra.Command{
		Use:   "jvmcore <main-class> [program args...]",
		Short: "Run a Java class file on a minimal bytecode interpreter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, bootClasspath, classpath, args[0], args[1:])
		},
	}
	cmd.Flags().StringArrayVarP(&classpath, "cp", "c", nil,
		"classpath entry (directory, .jar, or .jmod); repeatable")
	cmd.Flags().StringArrayVar(&bootClasspath, "bootclasspath", nil,
		"bootstrap classpath entry consulted before --cp, mirroring the platform/app loader split (directory, .jar, or .jmod); repeatable")
	return cmd
}

// newLoader builds the delegation chain a real launcher uses: a bootstrap
// loader (typically the jmod-packaged platform classes) consulted first,
// falling back to the application classpath.
func newLoader(bootClasspath, classpath []string) (vm.ClassLoader, error) {
	if len(classpath) == 0 {
		classpath = []string{"."}
	}
	if len(bootClasspath) == 0 {
		return vm.NewPathClassLoader(classpath)
	}
	boot, err := vm.NewPathClassLoader(bootClasspath)
	if err != nil {
		return nil, err
	}
	return vm.NewMultiClassLoader(boot, classpath)
}

func run(cmd *cobra.Command, bootClasspath, classpath []string, mainClass string, programArgs []string) error {
	loader, err := newLoader(bootClasspath, classpath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jvmcore: %v\n", err)
		return err
	}

	machine := vm.NewVM(loader)
	if err := machine.Execute(mainClass); err != nil {
		fmt.Fprintf(os.Stderr, "jvmcore: %v\n", err)
		return err
	}
	// TODO: marshal programArgs into a real java.lang.String[] once Execute
	// takes an args parameter instead of hardcoding main(null).
	_ = programArgs
	return nil
}
