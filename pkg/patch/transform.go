package patch

import (
	"errors"

	"github.com/james-see/circuitpatch/pkg/sanitize"
)

// MIMEType of every converted artifact.
const MIMEType = "application/octet-stream"

// OutputSuffix ends every converted filename
const OutputSuffix = ".SinglePatch.syx"

// Conversion is one converted patch ready to be emitted.
type Conversion struct {
	Source   *Patch
	Product  Product
	Data     []byte
	Filename string
}

// SwapModel flips the product model byte between Circuit and Circuit
// Tracks. Any other value is returned unchanged.
func SwapModel(b byte) byte {
	switch b {
	case CircuitModel:
		return CircuitTracksModel
	case CircuitTracksModel:
		return CircuitModel
	default:
		return b
	}
}

// Convert clones the patch bytes and retargets them to the opposite
// product. Every byte other than offset 5 is left as is, including the
// end marker.
func Convert(p *Patch) (*Conversion, error) {
	if p == nil {
		return nil, errors.New("nil patch")
	}
	target := p.Product.Opposite()
	if target == NoProduct {
		return nil, ErrUnknownProduct
	}

	data := p.Bytes()
	if len(data) <= modelOffset {
		return nil, ErrUnknownProduct
	}
	data[modelOffset] = SwapModel(data[modelOffset])

	return &Conversion{
		Source:   p,
		Product:  target,
		Data:     data,
		Filename: OutputName(p.Name, target),
	}, nil
}

// OutputName builds "<name>.<product>.SinglePatch.syx".
func OutputName(name string, product Product) string {
	return sanitize.Sanitize(name, "") + "." + product.String() + OutputSuffix
}
