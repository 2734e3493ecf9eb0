package scene

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/math"
)

// VertexStride is the size in bytes of one Vertex as uploaded: position then normal.
const VertexStride = 24

// Vertex is a mesh corner as consumed by the bottom-level acceleration structure.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
}

// Mesh is an indexed triangle list. Meshes are shared by pointer: objects
// that reference the same *Mesh share one bottom-level acceleration structure.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

func NewMesh(name string, vertices []Vertex, indices []uint32) (*Mesh, error) {
	m := &Mesh{Name: name, Vertices: vertices, Indices: indices}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the mesh is a non-empty triangle list with in-range indices.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return errors.Newf("mesh %q has no geometry", m.Name)
	}
	if len(m.Indices)%3 != 0 {
		return errors.Newf("mesh %q index count %d is not a multiple of 3", m.Name, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return errors.Newf("mesh %q index %d at %d out of range (%d vertices)", m.Name, idx, i, len(m.Vertices))
		}
	}
	return nil
}

func (m *Mesh) TriangleCount() uint32 {
	return uint32(len(m.Indices) / 3)
}

// Corners expands the index list into one vertex per triangle corner.
func (m *Mesh) Corners() []Vertex {
	out := make([]Vertex, len(m.Indices))
	for i, idx := range m.Indices {
		out[i] = m.Vertices[idx]
	}
	return out
}

// VertexBytes returns the vertices packed little endian at VertexStride.
func (m *Mesh) VertexBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(len(m.Vertices) * VertexStride)
	_ = binary.Write(&buf, binary.LittleEndian, m.Vertices)
	return buf.Bytes()
}

// IndexBytes returns the uint32 indices packed little endian.
func (m *Mesh) IndexBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(len(m.Indices) * 4)
	_ = binary.Write(&buf, binary.LittleEndian, m.Indices)
	return buf.Bytes()
}

// GenerateNormals assigns face normals to every vertex of each triangle.
// Vertices shared between triangles keep the normal of the last one.
func (m *Mesh) GenerateNormals() {
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]

		edge1 := m.Vertices[i1].Position.Sub(m.Vertices[i0].Position)
		edge2 := m.Vertices[i2].Position.Sub(m.Vertices[i0].Position)
		normal := edge1.Cross(edge2).Normalized()

		m.Vertices[i0].Normal = normal
		m.Vertices[i1].Normal = normal
		m.Vertices[i2].Normal = normal
	}
}

// FlipNormals negates every vertex normal.
func (m *Mesh) FlipNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Negate()
	}
}
