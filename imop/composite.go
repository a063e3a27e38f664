package imop

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/esimov/facedeform/utils"
)

const (
	Copy    = "copy"
	SrcOver = "src_over"
)

// Composite holds the currently active composition operation.
type Composite struct {
	current string
	ops     []string
}

// InitOp initializes a Composite with the source-over operator active.
func InitOp() *Composite {
	return &Composite{
		current: SrcOver,
		ops:     []string{Copy, SrcOver},
	}
}

// Set activates one of the supported composition operations.
// Unsupported operations are ignored.
func (op *Composite) Set(cop string) {
	if utils.Contains(op.ops, cop) {
		op.current = cop
	}
}

// Draw returns a new image where src is composited over a copy of the backdrop,
// with the top-left corner of src placed at pt. The backdrop is not modified.
// It fails when src does not fit entirely inside the backdrop.
func (op *Composite) Draw(backdrop, src *image.NRGBA, pt image.Point) (*image.NRGBA, error) {
	bb := backdrop.Bounds()
	target := src.Bounds().Sub(src.Bounds().Min).Add(bb.Min).Add(pt)
	if pt.X < 0 || pt.Y < 0 || !target.In(bb) {
		return nil, fmt.Errorf("source %v placed at %v does not fit the backdrop %v", src.Bounds().Size(), pt, bb.Size())
	}

	dst := image.NewNRGBA(bb)
	draw.Draw(dst, bb, backdrop, bb.Min, draw.Src)

	sb := src.Bounds()
	for y := 0; y < sb.Dy(); y++ {
		si := src.PixOffset(sb.Min.X, sb.Min.Y+y)
		di := dst.PixOffset(target.Min.X, target.Min.Y+y)
		for x := 0; x < sb.Dx(); x++ {
			s := src.Pix[si : si+4 : si+4]
			d := dst.Pix[di : di+4 : di+4]
			op.apply(d, s)
			si += 4
			di += 4
		}
	}
	return dst, nil
}

// apply writes the composition of the source pixel s with the backdrop pixel d into d.
func (op *Composite) apply(d, s []uint8) {
	if op.current == Copy {
		copy(d, s)
		return
	}

	asn := float64(s[3]) / 255
	abn := float64(d[3]) / 255

	an := asn + abn*(1-asn)
	if an == 0 {
		d[0], d[1], d[2], d[3] = 0, 0, 0, 0
		return
	}
	// Non-premultiplied output: the premultiplied sum is divided by the resulting alpha.
	for i := 0; i < 3; i++ {
		cs := float64(s[i]) / 255
		cb := float64(d[i]) / 255
		cn := (asn*cs + abn*cb*(1-asn)) / an
		d[i] = uint8(utils.Clamp(cn*255+0.5, 0, 255))
	}
	d[3] = uint8(utils.Clamp(an*255+0.5, 0, 255))
}
