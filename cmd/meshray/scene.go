package main

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/taigrr/meshray/pkg/math3d"
	"github.com/taigrr/meshray/pkg/models"
	"github.com/taigrr/meshray/pkg/pick"
)

// sceneOptions controls how model files are placed in the world.
type sceneOptions struct {
	// fit scales each model to a 2-unit cube centered on its slot.
	fit bool
	// spacing is the distance between slots along X.
	spacing float64
}

func (o *sceneOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.fit, "fit", true, "center each model and scale it to a 2-unit cube")
	cmd.Flags().Float64Var(&o.spacing, "spacing", 3, "distance between models along X")
}

// loadScene loads every path and lays the models out side by side along X,
// centered on the origin. The meshes themselves are not modified; placement
// lives in each instance's transform.
func loadScene(paths []string, opts sceneOptions) (*pick.Picker, error) {
	picker := pick.New()
	for i, path := range paths {
		mesh, err := models.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}

		offset := (float64(i) - float64(len(paths)-1)/2) * opts.spacing
		picker.Add(pick.NewInstance(filepath.Base(path), mesh, placement(mesh, offset, opts.fit)))
	}
	return picker, nil
}

// placement returns the transform that puts mesh at x = offset.
func placement(mesh *models.Mesh, offset float64, fit bool) math3d.Mat4 {
	slot := math3d.Translate(math3d.V3(offset, 0, 0))
	if !fit {
		return slot
	}

	size := mesh.Size()
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	scale := 1.0
	if maxDim > 0 {
		scale = 2.0 / maxDim
	}
	return slot.Mul(math3d.ScaleUniform(scale)).Mul(math3d.Translate(mesh.Center().Negate()))
}

// vec3Flag converts a three-element float slice flag.
func vec3Flag(name string, v []float64) (math3d.Vec3, error) {
	if len(v) != 3 {
		return math3d.Vec3{}, fmt.Errorf("--%s needs 3 comma-separated values; got %d", name, len(v))
	}
	return math3d.V3(v[0], v[1], v[2]), nil
}
