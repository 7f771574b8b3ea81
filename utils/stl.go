package utils

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // normal (12) + 3 vertices (36) + attribute count (2)
)

// STLVolumeCM3 computes the enclosed volume of a binary STL mesh in cubic
// centimeters. Vertex coordinates are assumed to be millimeters, the STL
// convention. The mesh must be watertight for the result to be meaningful;
// the signed tetrahedron sum handles any mesh position relative to the
// origin.
func STLVolumeCM3(data []byte) (float64, error) {
	if len(data) < stlHeaderSize+4 {
		return 0, &FileUploadError{Code: "INVALID_STL", Message: "File too small to be a binary STL"}
	}
	// ASCII STL files start with "solid"; only the binary format is
	// supported because it is what slicers and CAD exporters produce.
	if bytes.HasPrefix(bytes.TrimLeft(data[:stlHeaderSize], " \t"), []byte("solid")) && !looksBinary(data) {
		return 0, &FileUploadError{Code: "INVALID_STL", Message: "ASCII STL files are not supported"}
	}

	count := binary.LittleEndian.Uint32(data[stlHeaderSize : stlHeaderSize+4])
	expected := stlHeaderSize + 4 + int(count)*stlTriangleSize
	if count == 0 || len(data) < expected {
		return 0, &FileUploadError{Code: "INVALID_STL", Message: "Truncated or malformed binary STL"}
	}

	var total float64
	offset := stlHeaderSize + 4
	for i := uint32(0); i < count; i++ {
		// Skip the 12-byte normal; only vertices matter for volume.
		base := offset + int(i)*stlTriangleSize + 12
		v0 := readVec3(data[base:])
		v1 := readVec3(data[base+12:])
		v2 := readVec3(data[base+24:])
		total += signedTetraVolume(v0, v1, v2)
	}

	mm3 := math.Abs(total)
	return mm3 / 1000.0, nil
}

// looksBinary distinguishes a binary STL whose header happens to start with
// "solid" by checking the declared triangle count against the file size.
func looksBinary(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize : stlHeaderSize+4])
	return len(data) == stlHeaderSize+4+int(count)*stlTriangleSize
}

type vec3 struct {
	x, y, z float64
}

func readVec3(b []byte) vec3 {
	return vec3{
		x: float64(math.Float32frombits(binary.LittleEndian.Uint32(b))),
		y: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))),
		z: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))),
	}
}

// signedTetraVolume returns the signed volume of the tetrahedron formed by
// the triangle and the origin: v0 · (v1 × v2) / 6.
func signedTetraVolume(v0, v1, v2 vec3) float64 {
	cx := v1.y*v2.z - v1.z*v2.y
	cy := v1.z*v2.x - v1.x*v2.z
	cz := v1.x*v2.y - v1.y*v2.x
	return (v0.x*cx + v0.y*cy + v0.z*cz) / 6.0
}
