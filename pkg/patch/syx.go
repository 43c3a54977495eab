package patch

import (
	"errors"
	"strings"
)

// SysEx constants
const (
	SysExStart = 0xF0
	SysExEnd   = 0xF7
)

// Novation extended manufacturer ID: 00 20 29
var NovationID = [3]byte{0x00, 0x20, 0x29}

// Product ID bytes
const (
	ProductFamily      = 0x01
	CircuitModel       = 0x60
	CircuitTracksModel = 0x64
)

// Layout of a single patch message
const (
	SinglePatchSize = 350
	PatchesPerPack  = 64
	PatchPackSize   = SinglePatchSize * PatchesPerPack

	manufacturerOffset = 1
	productOffset      = 4
	modelOffset        = 5
	nameOffset         = 9
	NameLength         = 16
	categoryOffset     = nameOffset + NameLength
	genreOffset        = categoryOffset + 1
)

// Per-patch errors. A record carrying one of these is kept for display
// but never converted.
var (
	ErrNotSysEx       = errors.New("not a SysEx file format")
	ErrNotNovation    = errors.New("not a Novation SysEx file format")
	ErrUnknownProduct = errors.New("not an original Circuit or Circuit Tracks patch")
)

// Per-file errors.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrIO                  = errors.New("error loading file content")
)

// Record is one 350 byte slot of a file. It is either a *Patch or an
// *Invalid.
type Record interface {
	// Offset is the position of the record within its file.
	Offset() int
	// Bytes returns a copy of the record's raw message.
	Bytes() []byte
	// Err is nil for a valid patch.
	Err() error

	isRecord()
}

// Patch is a record that passed envelope, manufacturer and product checks.
type Patch struct {
	Product  Product
	Name     string
	Category Category
	Genre    Genre

	// Stored indices, kept so out of range values can be reported.
	CategoryIndex byte
	GenreIndex    byte

	offset int
	raw    []byte
}

func (p *Patch) Offset() int   { return p.offset }
func (p *Patch) Bytes() []byte { return clone(p.raw) }
func (p *Patch) Err() error    { return nil }
func (p *Patch) isRecord()     {}

// HasCategory reports whether the stored category index was in range.
func (p *Patch) HasCategory() bool { return p.Category != NoCategory }

// HasGenre reports whether the stored genre index was in range.
func (p *Patch) HasGenre() bool { return p.Genre != NoGenre }

// Invalid is a record that failed validation.
type Invalid struct {
	Kind error

	offset int
	raw    []byte
}

func (r *Invalid) Offset() int   { return r.offset }
func (r *Invalid) Bytes() []byte { return clone(r.raw) }
func (r *Invalid) Err() error    { return r.Kind }
func (r *Invalid) isRecord()     {}

// ReadHeader parses one single patch message. The input is copied, so
// the caller may reuse its buffer.
func ReadHeader(data []byte) Record {
	buf := clone(data)
	return readHeader(buf[:len(buf):len(buf)], 0)
}

// readHeader validates in a fixed order and stops at the first failure.
// raw is retained by the returned record and must not be modified.
func readHeader(raw []byte, offset int) Record {
	invalid := func(kind error) Record {
		return &Invalid{Kind: kind, offset: offset, raw: raw}
	}

	if len(raw) == 0 || raw[0] != SysExStart || raw[len(raw)-1] != SysExEnd {
		return invalid(ErrNotSysEx)
	}

	if !IsNovationSyx(raw) {
		return invalid(ErrNotNovation)
	}

	product := productFromID(raw)
	if product == NoProduct {
		return invalid(ErrUnknownProduct)
	}

	p := &Patch{
		Product:  product,
		Name:     readName(raw),
		Category: NoCategory,
		Genre:    NoGenre,
		offset:   offset,
		raw:      raw,
	}

	if len(raw) > categoryOffset {
		p.CategoryIndex = raw[categoryOffset]
		p.Category, _ = CategoryFromIndex(p.CategoryIndex)
	}
	if len(raw) > genreOffset {
		p.GenreIndex = raw[genreOffset]
		p.Genre, _ = GenreFromIndex(p.GenreIndex)
	}

	return p
}

// IsNovationSyx checks the extended manufacturer ID following the start byte
func IsNovationSyx(data []byte) bool {
	if len(data) < manufacturerOffset+len(NovationID) {
		return false
	}
	return data[1] == NovationID[0] &&
		data[2] == NovationID[1] &&
		data[3] == NovationID[2]
}

func productFromID(data []byte) Product {
	if len(data) <= modelOffset || data[productOffset] != ProductFamily {
		return NoProduct
	}
	switch data[modelOffset] {
	case CircuitModel:
		return Circuit
	case CircuitTracksModel:
		return CircuitTracks
	default:
		return NoProduct
	}
}

// readName maps each name byte to the code point of the same value
// (Latin-1) and trims surrounding whitespace.
func readName(data []byte) string {
	end := nameOffset + NameLength
	if end > len(data) {
		end = len(data)
	}
	if end <= nameOffset {
		return ""
	}

	var sb strings.Builder
	for _, b := range data[nameOffset:end] {
		sb.WriteRune(rune(b))
	}
	return strings.TrimSpace(sb.String())
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
