package scene

import (
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/math"
)

// NewTriangleMesh returns a single triangle in the XY plane facing +Z.
func NewTriangleMesh() *Mesh {
	n := math.NewVec3(0, 0, 1)
	return &Mesh{
		Name: "triangle",
		Vertices: []Vertex{
			{Position: math.NewVec3(-1, -1, 0), Normal: n},
			{Position: math.NewVec3(1, -1, 0), Normal: n},
			{Position: math.NewVec3(0, 1, 0), Normal: n},
		},
		Indices: []uint32{0, 1, 2},
	}
}

// NewPlaneMesh returns a width x depth plane in the XZ plane facing +Y,
// split into xSegmentCount x zSegmentCount quads.
func NewPlaneMesh(width, depth float32, xSegmentCount, zSegmentCount uint32) *Mesh {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if zSegmentCount < 1 {
		core.LogWarn("zSegmentCount must be a positive number. Defaulting to one.")
		zSegmentCount = 1
	}

	mesh := &Mesh{
		Name:     "plane",
		Vertices: make([]Vertex, xSegmentCount*zSegmentCount*4),
		Indices:  make([]uint32, xSegmentCount*zSegmentCount*6),
	}

	segWidth := width / float32(xSegmentCount)
	segDepth := depth / float32(zSegmentCount)
	halfWidth := width * 0.5
	halfDepth := depth * 0.5
	up := math.NewVec3Up()
	for z := uint32(0); z < zSegmentCount; z++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := (float32(x) * segWidth) - halfWidth
			minZ := (float32(z) * segDepth) - halfDepth
			maxX := minX + segWidth
			maxZ := minZ + segDepth

			vOffset := ((z * xSegmentCount) + x) * 4
			mesh.Vertices[vOffset+0] = Vertex{Position: math.NewVec3(minX, 0, minZ), Normal: up}
			mesh.Vertices[vOffset+1] = Vertex{Position: math.NewVec3(maxX, 0, maxZ), Normal: up}
			mesh.Vertices[vOffset+2] = Vertex{Position: math.NewVec3(minX, 0, maxZ), Normal: up}
			mesh.Vertices[vOffset+3] = Vertex{Position: math.NewVec3(maxX, 0, minZ), Normal: up}

			iOffset := ((z * xSegmentCount) + x) * 6
			mesh.Indices[iOffset+0] = vOffset + 0
			mesh.Indices[iOffset+1] = vOffset + 1
			mesh.Indices[iOffset+2] = vOffset + 2
			mesh.Indices[iOffset+3] = vOffset + 0
			mesh.Indices[iOffset+4] = vOffset + 3
			mesh.Indices[iOffset+5] = vOffset + 1
		}
	}
	return mesh
}

// NewCubeMesh returns an axis-aligned box centred on the origin with one
// quad per face and outward normals.
func NewCubeMesh(width, height, depth float32) *Mesh {
	hx, hy, hz := width*0.5, height*0.5, depth*0.5

	// Each face: normal and its four corners (min-min, max-max, min-max, max-min).
	faces := []struct {
		normal  math.Vec3
		corners [4]math.Vec3
	}{
		{math.NewVec3(0, 0, 1), [4]math.Vec3{{X: -hx, Y: -hy, Z: hz}, {X: hx, Y: hy, Z: hz}, {X: -hx, Y: hy, Z: hz}, {X: hx, Y: -hy, Z: hz}}},
		{math.NewVec3(0, 0, -1), [4]math.Vec3{{X: hx, Y: -hy, Z: -hz}, {X: -hx, Y: hy, Z: -hz}, {X: hx, Y: hy, Z: -hz}, {X: -hx, Y: -hy, Z: -hz}}},
		{math.NewVec3(-1, 0, 0), [4]math.Vec3{{X: -hx, Y: -hy, Z: -hz}, {X: -hx, Y: hy, Z: hz}, {X: -hx, Y: hy, Z: -hz}, {X: -hx, Y: -hy, Z: hz}}},
		{math.NewVec3(1, 0, 0), [4]math.Vec3{{X: hx, Y: -hy, Z: hz}, {X: hx, Y: hy, Z: -hz}, {X: hx, Y: hy, Z: hz}, {X: hx, Y: -hy, Z: -hz}}},
		{math.NewVec3(0, -1, 0), [4]math.Vec3{{X: hx, Y: -hy, Z: hz}, {X: -hx, Y: -hy, Z: -hz}, {X: hx, Y: -hy, Z: -hz}, {X: -hx, Y: -hy, Z: hz}}},
		{math.NewVec3(0, 1, 0), [4]math.Vec3{{X: -hx, Y: hy, Z: hz}, {X: hx, Y: hy, Z: -hz}, {X: -hx, Y: hy, Z: -hz}, {X: hx, Y: hy, Z: hz}}},
	}

	mesh := &Mesh{
		Name:     "cube",
		Vertices: make([]Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	for i, f := range faces {
		for _, c := range f.corners {
			mesh.Vertices = append(mesh.Vertices, Vertex{Position: c, Normal: f.normal})
		}
		v := uint32(i * 4)
		mesh.Indices = append(mesh.Indices, v+0, v+1, v+2, v+0, v+3, v+1)
	}
	return mesh
}
