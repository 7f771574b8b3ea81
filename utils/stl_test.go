package utils

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type tri [3][3]float32

// buildBinarySTL assembles a binary STL file from triangles.
func buildBinarySTL(header string, tris []tri) []byte {
	var buf bytes.Buffer
	h := make([]byte, stlHeaderSize)
	copy(h, header)
	buf.Write(h)
	binary.Write(&buf, binary.LittleEndian, uint32(len(tris)))
	for _, t := range tris {
		// Normal vector, unused by the volume computation.
		binary.Write(&buf, binary.LittleEndian, [3]float32{})
		for _, v := range t {
			binary.Write(&buf, binary.LittleEndian, v)
		}
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

// cubeTris triangulates an axis-aligned cube spanning [0,size]³ with
// outward-facing winding.
func cubeTris(size float32) []tri {
	s := size
	return []tri{
		// bottom (z=0)
		{{0, 0, 0}, {s, s, 0}, {s, 0, 0}},
		{{0, 0, 0}, {0, s, 0}, {s, s, 0}},
		// top (z=s)
		{{0, 0, s}, {s, 0, s}, {s, s, s}},
		{{0, 0, s}, {s, s, s}, {0, s, s}},
		// front (y=0)
		{{0, 0, 0}, {s, 0, 0}, {s, 0, s}},
		{{0, 0, 0}, {s, 0, s}, {0, 0, s}},
		// back (y=s)
		{{0, s, 0}, {s, s, s}, {s, s, 0}},
		{{0, s, 0}, {0, s, s}, {s, s, s}},
		// left (x=0)
		{{0, 0, 0}, {0, 0, s}, {0, s, s}},
		{{0, 0, 0}, {0, s, s}, {0, s, 0}},
		// right (x=s)
		{{s, 0, 0}, {s, s, s}, {s, 0, s}},
		{{s, 0, 0}, {s, s, 0}, {s, s, s}},
	}
}

func TestSTLVolumeCube(t *testing.T) {
	// A 20mm cube has a volume of 8000 mm³ = 8 cm³.
	data := buildBinarySTL("test cube", cubeTris(20))

	volume, err := STLVolumeCM3(data)
	assert.NoError(t, err)
	assert.InDelta(t, 8.0, volume, 1e-6)
}

func TestSTLVolumeIndependentOfPosition(t *testing.T) {
	tris := cubeTris(10)
	for i := range tris {
		for j := range tris[i] {
			tris[i][j][0] += 100
			tris[i][j][1] -= 50
			tris[i][j][2] += 7
		}
	}
	data := buildBinarySTL("offset cube", tris)

	volume, err := STLVolumeCM3(data)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, volume, 1e-4)
}

func TestSTLVolumeRejectsTruncatedFile(t *testing.T) {
	data := buildBinarySTL("cube", cubeTris(10))

	_, err := STLVolumeCM3(data[:len(data)-10])
	assert.Error(t, err)

	_, err = STLVolumeCM3(data[:40])
	assert.Error(t, err)
}

func TestSTLVolumeRejectsASCIIFormat(t *testing.T) {
	ascii := []byte("solid cube\nfacet normal 0 0 0\nendsolid cube\n")
	padded := append(ascii, bytes.Repeat([]byte(" "), 100)...)

	_, err := STLVolumeCM3(padded)
	assert.Error(t, err)
}

func TestSTLVolumeRejectsZeroTriangles(t *testing.T) {
	data := buildBinarySTL("empty", nil)

	_, err := STLVolumeCM3(data)
	assert.Error(t, err)
}

func TestSTLVolumeBinaryFileWithSolidHeader(t *testing.T) {
	// Some exporters write "solid" into the binary header; the size check
	// should still classify the file as binary.
	data := buildBinarySTL("solid exported-part", cubeTris(10))

	volume, err := STLVolumeCM3(data)
	assert.NoError(t, err)
	assert.False(t, math.IsNaN(volume))
	assert.InDelta(t, 1.0, volume, 1e-4)
}
