// Package imaging turns decoded images into statistics samples.
//
// An ImageSource reads one channel of an image (or of a Region of it) into
// a flat, row-major list of samples. Each sample carries a mask word built
// from the pixel itself and from optional companion images:
//
//   - SAT: a colour component is at full scale (255)
//   - NO_DATA: the pixel is fully transparent
//   - BAD: the mask image is non-zero at that pixel
//   - EDGE: the pixel is within SourceOptions.Edge of the region border
//
// and, when a variance image or a gain/read-noise model is supplied, a
// variance that lets the statistics engine weight samples.
//
// # Coordinate System
//
// Coordinates are image pixel coordinates: (0,0) is the top-left pixel of an
// image whose bounds start at the origin, X grows rightward and Y downward.
// Regions are half-open: (X1,Y1) is inclusive, (X2,Y2) exclusive.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. An ImageSource is immutable once
// built. The images passed to NewImageSource must not be modified while it
// runs.
package imaging
