package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/taigrr/meshray/pkg/bvh"
	"github.com/taigrr/meshray/pkg/models"
)

type statsOptions struct {
	validate bool
}

func newStatsCmd() *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats <model>...",
		Short: "Build each model's BVH and print its shape",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.OutOrStdout(), args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "check the coverage and containment invariants of every tree")
	return cmd
}

// meshStats is one table row.
type meshStats struct {
	name      string
	vertices  int
	buildTime time.Duration
	stats     bvh.Stats
	valid     error
}

func runStats(w io.Writer, paths []string, opts *statsOptions) error {
	rows := make([]meshStats, 0, len(paths))
	var invalid error

	for _, path := range paths {
		mesh, err := models.Load(path)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}

		row := collectStats(mesh)
		if opts.validate {
			row.valid = mesh.BVH().Validate()
			if row.valid != nil {
				invalid = errors.Join(invalid, fmt.Errorf("%s: %w", row.name, row.valid))
			}
		}
		rows = append(rows, row)
	}

	writeStatsTable(w, rows, opts.validate)
	return invalid
}

func collectStats(mesh *models.Mesh) meshStats {
	start := time.Now()
	tree := mesh.BVH()
	return meshStats{
		name:      mesh.Name,
		vertices:  mesh.VertexCount(),
		buildTime: time.Since(start),
		stats:     tree.Stats(),
	}
}

func writeStatsTable(w io.Writer, rows []meshStats, validated bool) {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)

	header := []string{"Model", "Vertices", "Triangles", "Nodes", "Leaves", "Depth", "Leaf size", "SAH cost", "Build"}
	if validated {
		header = append(header, "Valid")
	}
	table.SetHeader(header)

	for _, r := range rows {
		s := r.stats
		line := []string{
			r.name,
			strconv.Itoa(r.vertices),
			strconv.Itoa(s.Triangles),
			strconv.Itoa(s.Nodes),
			strconv.Itoa(s.Leaves),
			strconv.Itoa(s.Depth),
			fmt.Sprintf("%d-%d (avg %.1f)", s.MinLeaf, s.MaxLeaf, s.AvgLeaf),
			fmt.Sprintf("%.2f", s.SAHCost),
			r.buildTime.Round(time.Microsecond).String(),
		}
		if validated {
			if r.valid == nil {
				line = append(line, "ok")
			} else {
				line = append(line, "FAIL")
			}
		}
		table.Append(line)
	}
	table.Render()
}
