package loaders

import (
	"bufio"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/math"
	"github.com/spaghettifunk/vengine/engine/scene"
)

// ModelLoader imports Wavefront OBJ meshes. Only positions, normals and
// faces are read; polygons are fan triangulated.
type ModelLoader struct {
	FS fs.FS
}

// Load parses the OBJ file into a mesh named after the file. Meshes
// without normals get smooth normals. flipNormals negates them afterwards.
func (ml *ModelLoader) Load(file string, flipNormals bool) (*scene.Mesh, error) {
	f, err := ml.FS.Open(file)
	if err != nil {
		return nil, core.WrapConfigurationError(err, "opening model %s", file)
	}
	defer f.Close()

	name := strings.TrimSuffix(path.Base(file), path.Ext(file))
	mesh, err := ParseOBJ(name, f)
	if err != nil {
		return nil, core.WrapConfigurationError(err, "model %s", file)
	}
	if flipNormals {
		mesh.FlipNormals()
	}
	core.LogDebug("loaded model %s: %d vertices, %d triangles", file, len(mesh.Vertices), mesh.TriangleCount())
	return mesh, nil
}

type objCorner struct {
	position int
	normal   int
}

// ParseOBJ reads an OBJ stream. Vertices are deduplicated per
// position/normal pair.
func ParseOBJ(name string, r io.Reader) (*scene.Mesh, error) {
	var (
		positions []math.Vec3
		normals   []math.Vec3
		vertices  []scene.Vertex
		indices   []uint32
		lookup    = make(map[objCorner]uint32)
		hasNormal = true
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			positions = append(positions, v)
		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			normals = append(normals, n.Normalized())
		case "f":
			if len(fields) < 4 {
				return nil, errors.Newf("line %d: face needs at least 3 corners", lineNo)
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, token := range fields[1:] {
				corner, err := parseCorner(token, len(positions), len(normals))
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", lineNo)
				}
				if corner.normal < 0 {
					hasNormal = false
				}
				idx, ok := lookup[corner]
				if !ok {
					v := scene.Vertex{Position: positions[corner.position]}
					if corner.normal >= 0 {
						v.Normal = normals[corner.normal]
					}
					idx = uint32(len(vertices))
					vertices = append(vertices, v)
					lookup[corner] = idx
				}
				face = append(face, idx)
			}
			for i := 1; i+1 < len(face); i++ {
				indices = append(indices, face[0], face[i], face[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading obj")
	}

	mesh, err := scene.NewMesh(name, vertices, indices)
	if err != nil {
		return nil, err
	}
	if !hasNormal {
		smoothNormals(mesh)
	}
	return mesh, nil
}

func parseVec3(fields []string) (math.Vec3, error) {
	if len(fields) < 3 {
		return math.Vec3{}, errors.Newf("expected 3 components, got %d", len(fields))
	}
	var c [3]float32
	for i := range c {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return math.Vec3{}, errors.Wrapf(err, "component %d", i)
		}
		c[i] = float32(f)
	}
	return math.NewVec3(c[0], c[1], c[2]), nil
}

// parseCorner resolves v, v/vt, v//vn and v/vt/vn references. Negative
// references count back from the latest element. A missing normal is -1.
func parseCorner(token string, positionCount, normalCount int) (objCorner, error) {
	parts := strings.Split(token, "/")
	position, err := resolveIndex(parts[0], positionCount)
	if err != nil {
		return objCorner{}, errors.Wrapf(err, "position of %q", token)
	}
	corner := objCorner{position: position, normal: -1}
	if len(parts) == 3 && parts[2] != "" {
		if corner.normal, err = resolveIndex(parts[2], normalCount); err != nil {
			return objCorner{}, errors.Wrapf(err, "normal of %q", token)
		}
	}
	return corner, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i += count
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, errors.Newf("index %s out of range [1, %d]", s, count)
	}
	return i, nil
}

// smoothNormals averages the area-weighted face normals around each vertex.
func smoothNormals(mesh *scene.Mesh) {
	accum := make([]math.Vec3, len(mesh.Vertices))
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		i0, i1, i2 := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
		edge1 := mesh.Vertices[i1].Position.Sub(mesh.Vertices[i0].Position)
		edge2 := mesh.Vertices[i2].Position.Sub(mesh.Vertices[i0].Position)
		n := edge1.Cross(edge2)
		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	}
	for i := range mesh.Vertices {
		mesh.Vertices[i].Normal = accum[i].Normalized()
	}
}
