package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taigrr/meshray/pkg/log"
)

var logger = log.New("meshray")

type rootOptions struct {
	verbose  bool
	debug    bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "meshray",
		Short: "Inspect and pick triangle meshes with a SAH bounding volume hierarchy",
		Long: `meshray loads glTF/GLB and Wavefront OBJ meshes, builds a binned-SAH
bounding volume hierarchy over each mesh's triangles, and casts rays
against it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.apply()
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log at info level")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level, including BVH build statistics")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, notice, warning, error)")

	cmd.AddCommand(
		newStatsCmd(),
		newPickCmd(),
		newRenderCmd(),
		newViewCmd(),
	)
	return cmd
}

// apply sets the global log level. An explicit --log-level wins over the
// shorthand flags.
func (o *rootOptions) apply() error {
	level := log.Warning
	switch {
	case o.logLevel != "":
		l, err := log.ParseLevel(o.logLevel)
		if err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		level = l
	case o.debug:
		level = log.Debug
	case o.verbose:
		level = log.Info
	}
	log.SetLevel(level)
	return nil
}
