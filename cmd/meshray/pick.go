package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/taigrr/meshray/pkg/bvh"
	"github.com/taigrr/meshray/pkg/pick"
)

type pickOptions struct {
	scene  sceneOptions
	origin []float64
	dir    []float64
	all    bool
	brute  bool
}

func newPickCmd() *cobra.Command {
	opts := &pickOptions{}

	cmd := &cobra.Command{
		Use:   "pick <model>...",
		Short: "Cast one world-space ray into the models and report the nearest hit",
		Long: `pick places the models side by side along X (see --spacing and --fit)
and casts the ray --origin + t * --dir into them. The direction is used as
given, so distances are in units of its length.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPick(cmd.OutOrStdout(), args, opts)
		},
	}

	opts.scene.register(cmd)
	cmd.Flags().Float64SliceVar(&opts.origin, "origin", []float64{0, 0, 10}, "ray origin x,y,z")
	cmd.Flags().Float64SliceVar(&opts.dir, "dir", []float64{0, 0, -1}, "ray direction x,y,z")
	cmd.Flags().BoolVar(&opts.all, "all", false, "list every instance hit, nearest first")
	cmd.Flags().BoolVar(&opts.brute, "brute-force", false, "test every triangle instead of using the BVH")
	return cmd
}

func runPick(w io.Writer, paths []string, opts *pickOptions) error {
	origin, err := vec3Flag("origin", opts.origin)
	if err != nil {
		return err
	}
	dir, err := vec3Flag("dir", opts.dir)
	if err != nil {
		return err
	}
	if dir.LenSq() == 0 {
		return fmt.Errorf("--dir must not be zero")
	}

	picker, err := loadScene(paths, opts.scene)
	if err != nil {
		return err
	}
	if opts.brute {
		picker.Strategy = pick.StrategyBruteForce
	}

	ray := bvh.NewRay(origin, dir)
	if opts.all {
		results := picker.PickAll(ray)
		if len(results) == 0 {
			fmt.Fprintln(w, "no hit")
		}
		for _, res := range results {
			printResult(w, res)
		}
		return nil
	}

	res, ok := picker.Pick(ray)
	if !ok {
		fmt.Fprintln(w, "no hit")
		return nil
	}
	printResult(w, res)
	return nil
}

func printResult(w io.Writer, res pick.Result) {
	p := res.Point
	fmt.Fprintf(w, "%s: t=%.6f point=(%.4f, %.4f, %.4f) triangle=%v uv=(%.4f, %.4f)\n",
		res.Instance.Name, res.Distance, p.X, p.Y, p.Z, res.Hit.Indices, res.Hit.U, res.Hit.V)
}
