// Package patch reads and rewrites Novation Circuit patch SysEx files.
//
// A single patch is one 350 byte System Exclusive message. A patch pack is
// 64 single patches concatenated with no padding. The only difference
// between an original Circuit patch and a Circuit Tracks patch is the
// second product byte, which is what the conversion flips.
package patch

import "fmt"

// Product identifies the hardware variant a patch targets
type Product int

const (
	NoProduct Product = iota
	Circuit
	CircuitTracks
)

// String returns the label used in output filenames
func (p Product) String() string {
	switch p {
	case Circuit:
		return "Circuit"
	case CircuitTracks:
		return "CircuitTracks"
	default:
		return ""
	}
}

// DisplayName returns the product name as printed on the hardware
func (p Product) DisplayName() string {
	switch p {
	case Circuit:
		return "Circuit"
	case CircuitTracks:
		return "Circuit Tracks"
	default:
		return "Unknown"
	}
}

// Opposite returns the product a conversion targets.
func (p Product) Opposite() Product {
	switch p {
	case Circuit:
		return CircuitTracks
	case CircuitTracks:
		return Circuit
	default:
		return NoProduct
	}
}

// ID returns the two product bytes stored at offsets 4 and 5.
func (p Product) ID() (byte, byte, bool) {
	switch p {
	case Circuit:
		return ProductFamily, CircuitModel, true
	case CircuitTracks:
		return ProductFamily, CircuitTracksModel, true
	default:
		return 0, 0, false
	}
}

// Category is an index into the fixed category vocabulary
type Category int

// NoCategory marks a stored index outside the vocabulary.
const NoCategory Category = -1

var categoryNames = [...]string{
	"None",
	"Arp",
	"Bass",
	"Bell",
	"Classic",
	"Drum",
	"Keyboard",
	"Lead",
	"Movement",
	"Pad",
	"Poly",
	"SFX",
	"Strings",
	"User",
	"Voc/Tune",
}

// CategoryFromIndex looks up a stored category byte.
func CategoryFromIndex(b byte) (Category, bool) {
	if int(b) >= len(categoryNames) {
		return NoCategory, false
	}
	return Category(b), true
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return ""
	}
	return categoryNames[c]
}

// Categories returns the category vocabulary in index order
func Categories() []string {
	out := make([]string, len(categoryNames))
	copy(out, categoryNames[:])
	return out
}

// Genre is an index into the fixed genre vocabulary
type Genre int

// NoGenre marks a stored index outside the vocabulary.
const NoGenre Genre = -1

var genreNames = [...]string{
	"None",
	"Classic",
	"DnB Breaks",
	"House",
	"Industrial",
	"Jazz",
	"RnB/HipHop",
	"Rock/Pop",
	"Techno",
	"Dubstep",
}

// GenreFromIndex looks up a stored genre byte.
func GenreFromIndex(b byte) (Genre, bool) {
	if int(b) >= len(genreNames) {
		return NoGenre, false
	}
	return Genre(b), true
}

func (g Genre) String() string {
	if g < 0 || int(g) >= len(genreNames) {
		return ""
	}
	return genreNames[g]
}

// Genres returns the genre vocabulary in index order
func Genres() []string {
	out := make([]string, len(genreNames))
	copy(out, genreNames[:])
	return out
}

// FileType is assigned to a file once, by its length
type FileType int

const (
	UnknownFileType FileType = iota
	SinglePatch
	PatchPack
)

func (t FileType) String() string {
	switch t {
	case SinglePatch:
		return "Single Patch"
	case PatchPack:
		return "Patch Pack"
	default:
		return "Unknown"
	}
}

// FileTypeForSize reports which file type a byte length denotes.
func FileTypeForSize(size int64) (FileType, error) {
	switch size {
	case SinglePatchSize:
		return SinglePatch, nil
	case PatchPackSize:
		return PatchPack, nil
	default:
		return UnknownFileType, fmt.Errorf("%w: %d bytes", ErrUnsupportedFileType, size)
	}
}
