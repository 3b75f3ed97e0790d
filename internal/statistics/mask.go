package statistics

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaskPixel is a per-sample word of data-quality bits. Each bit is a mask
// plane; a sample is excluded from statistics when any of its bits is also
// set in the Control's AndMask.
type MaskPixel uint32

// Standard mask planes.
const (
	MaskBad      MaskPixel = 1 << iota // known bad pixel (from a mask image)
	MaskSat                            // saturated in at least one channel
	MaskIntrp                          // value was interpolated
	MaskCR                             // cosmic ray hit
	MaskEdge                           // too close to the region border
	MaskDetected                       // part of a detected source
	MaskSuspect                        // unreliable but not known bad
	MaskNoData                         // no data (fully transparent pixel)
)

var maskPlanes = []struct {
	name string
	bit  MaskPixel
}{
	{"BAD", MaskBad},
	{"SAT", MaskSat},
	{"INTRP", MaskIntrp},
	{"CR", MaskCR},
	{"EDGE", MaskEdge},
	{"DETECTED", MaskDetected},
	{"SUSPECT", MaskSuspect},
	{"NO_DATA", MaskNoData},
}

// MaskPlaneNames returns the names of all mask planes in bit order.
func MaskPlaneNames() []string {
	names := make([]string, len(maskPlanes))
	for i, p := range maskPlanes {
		names[i] = p.name
	}
	return names
}

// ParseMaskPlane returns the bit for a mask plane name (case-insensitive).
func ParseMaskPlane(name string) (MaskPixel, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, p := range maskPlanes {
		if p.name == upper {
			return p.bit, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mask plane %q", ErrInvalidParameter, name)
}

// ParseMask ORs together the bits of the named planes.
func ParseMask(names []string) (MaskPixel, error) {
	var m MaskPixel
	for _, n := range names {
		bit, err := ParseMaskPlane(n)
		if err != nil {
			return 0, err
		}
		m |= bit
	}
	return m, nil
}

// Planes returns the names of the planes set in m. Bits without a name are
// rendered as "BIT<n>".
func (m MaskPixel) Planes() []string {
	names := make([]string, 0, bits.OnesCount32(uint32(m)))
	for i := 0; i < 32; i++ {
		bit := MaskPixel(1) << i
		if m&bit == 0 {
			continue
		}
		if i < len(maskPlanes) {
			names = append(names, maskPlanes[i].name)
		} else {
			names = append(names, fmt.Sprintf("BIT%d", i))
		}
	}
	return names
}

func (m MaskPixel) String() string {
	if m == 0 {
		return "0"
	}
	return strings.Join(m.Planes(), "|")
}
