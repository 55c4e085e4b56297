package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/meshray/pkg/math3d"
)

// LoadOBJ loads the geometry of a Wavefront OBJ file. Positions, normals
// and faces are read; polygons are fan-triangulated.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	mesh, err := ReadOBJ(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Infof("loaded %s: %d vertices, %d triangles", path, mesh.VertexCount(), mesh.TriangleCount())
	return mesh, nil
}

// ReadOBJ parses OBJ text from r. Records other than "v", "vn" and "f" are
// ignored. Face indices are 1-based; negative indices count back from the
// most recent vertex.
func ReadOBJ(r io.Reader, name string) (*Mesh, error) {
	mesh := NewMesh(name)
	var normals []math3d.Vec3
	// vn references per vertex, resolved once the whole file is read.
	vertexNormal := make(map[int]int)

	lineNum := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			mesh.Vertices = append(mesh.Vertices, MeshVertex{Position: v})
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			normals = append(normals, v)
		case "f":
			if err := parseFace(mesh, lineTokens, len(normals), vertexNormal); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	for vi, ni := range vertexNormal {
		mesh.Vertices[vi].Normal = normals[ni]
	}
	if !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()
	return mesh, nil
}

// parseVec3 parses the three coordinates following the record keyword.
// A fourth (w) coordinate is accepted and ignored.
func parseVec3(lineTokens []string) (math3d.Vec3, error) {
	if len(lineTokens) < 4 {
		return math3d.Vec3{}, fmt.Errorf("'%s' expects 3 coordinates; got %d", lineTokens[0], len(lineTokens)-1)
	}

	var xyz [3]float64
	for i := range xyz {
		v, err := strconv.ParseFloat(lineTokens[i+1], 64)
		if err != nil {
			return math3d.Vec3{}, fmt.Errorf("'%s' coordinate %d: %w", lineTokens[0], i, err)
		}
		xyz[i] = v
	}
	return math3d.V3(xyz[0], xyz[1], xyz[2]), nil
}

// parseFace appends the fan triangulation of one "f" record.
func parseFace(mesh *Mesh, lineTokens []string, normalCount int, vertexNormal map[int]int) error {
	args := lineTokens[1:]
	if len(args) < 3 {
		return fmt.Errorf("'f' expects at least 3 vertices; got %d", len(args))
	}

	corners := make([]int, len(args))
	for i, arg := range args {
		vTokens := strings.Split(arg, "/")
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", i)
		}

		vi, err := selectFaceCoordIndex(vTokens[0], len(mesh.Vertices))
		if err != nil {
			return fmt.Errorf("face argument %d: %w", i, err)
		}
		corners[i] = vi

		if len(vTokens) == 3 && vTokens[2] != "" {
			ni, err := selectFaceCoordIndex(vTokens[2], normalCount)
			if err != nil {
				return fmt.Errorf("face argument %d normal: %w", i, err)
			}
			vertexNormal[vi] = ni
		}
	}

	for i := 1; i+1 < len(corners); i++ {
		mesh.Faces = append(mesh.Faces, Face{V: [3]int{corners[0], corners[i], corners[i+1]}})
	}
	return nil
}

// selectFaceCoordIndex converts a 1-based or negative OBJ index into an
// offset into a list of itemCount entries.
func selectFaceCoordIndex(token string, itemCount int) (int, error) {
	index, err := strconv.Atoi(token)
	if err != nil {
		return -1, fmt.Errorf("invalid index %q", token)
	}

	var offset int
	switch {
	case index > 0:
		offset = index - 1
	case index < 0:
		offset = itemCount + index
	default:
		return -1, fmt.Errorf("index 0 is not valid")
	}

	if offset < 0 || offset >= itemCount {
		return -1, fmt.Errorf("index %d out of range; %d entries defined so far", index, itemCount)
	}
	return offset, nil
}
