package anyenc

import (
	"fmt"

	"github.com/unixpickle/anydiff/anyseq"
)

// UnimplementedError is the panic value used when an
// operation is invoked on something that cannot perform
// it, such as an abstract encoder or an empty Delegate.
type UnimplementedError struct {
	Op   string
	Type string
}

// Error returns a description of the missing operation.
func (u *UnimplementedError) Error() string {
	return fmt.Sprintf("unimplemented %s for %s", u.Op, u.Type)
}

// DimError is the panic value used when an encoder is fed
// vectors of the wrong size.
type DimError struct {
	Encoder  string
	Expected int
	Actual   int
}

// Error returns a description of the mismatch.
func (d *DimError) Error() string {
	return fmt.Sprintf("%s: expected input dimension %d but got %d", d.Encoder,
		d.Expected, d.Actual)
}

// checkInputDim panics with a *DimError if the first
// timestep of in does not contain vectors of size dim.
func checkInputDim(encoder string, dim int, in anyseq.Seq) {
	out := in.Output()
	if len(out) == 0 || out[0].NumPresent() == 0 {
		return
	}
	size := out[0].Packed.Len() / out[0].NumPresent()
	if size != dim {
		panic(&DimError{Encoder: encoder, Expected: dim, Actual: size})
	}
}
