package seqrnn

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

var testLengths = []int{3, 1, 5}

func TestAddSeqsProp(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	s1, v1 := randomSeqs(c, 2, testLengths)
	s2, v2 := randomSeqs(c, 2, testLengths)
	checker := &anydifftest.SeqChecker{
		F: func() anyseq.Seq {
			return AddSeqs(s1, s2)
		},
		V: append(v1, v2...),
	}
	checker.FullCheck(t)
}

func TestPerSeqIdentity(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	in, _ := randomSeqs(c, 3, testLengths)
	out := PerSeq(in, func(s [][]anydiff.Res) [][]anydiff.Res {
		return s
	})
	if !seqsEquivalent(in.Output(), out.Output()) {
		t.Errorf("expected %s but got %s", seqString(in.Output()), seqString(out.Output()))
	}
}

func TestPerSeqProp(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	in, vars := randomSeqs(c, 2, testLengths)
	checker := &anydifftest.SeqChecker{
		F: func() anyseq.Seq {
			return PerSeq(in, func(s [][]anydiff.Res) [][]anydiff.Res {
				// Reverse every sequence and drop its first frame.
				res := make([][]anydiff.Res, len(s))
				for i, frames := range s {
					for j := len(frames) - 1; j > 0; j-- {
						res[i] = append(res[i], anydiff.Scale(frames[j], c.MakeNumeric(2)))
					}
				}
				return res
			})
		},
		V: vars,
	}
	checker.FullCheck(t)
}

func TestPerSeqEmpty(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	in, _ := randomSeqs(c, 2, testLengths)
	out := PerSeq(in, func(s [][]anydiff.Res) [][]anydiff.Res {
		return make([][]anydiff.Res, len(s))
	})
	if len(out.Output()) != 0 {
		t.Errorf("expected no timesteps but got %d", len(out.Output()))
	}
	if out.Creator() != in.Creator() {
		t.Error("creator was not preserved")
	}
}

func TestBatchSize(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	in, _ := randomSeqs(c, 2, testLengths)
	if n := BatchSize(in); n != 3 {
		t.Errorf("expected 3 but got %d", n)
	}
	if n := BatchSize(anyseq.ConstSeqList(c, nil)); n != 0 {
		t.Errorf("expected 0 but got %d", n)
	}
}

func TestDropoutDisabled(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	in, _ := randomSeqs(c, 4, testLengths)
	var d *Dropout
	if d.MapSeq(in) != in {
		t.Error("nil dropout should be the identity")
	}
	d = &Dropout{}
	if d.MapSeq(in) != in {
		t.Error("zero dropout should be the identity")
	}
}

func TestDropoutScale(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	ones := c.MakeVector(1000)
	ones.AddScalar(1.0)
	d := &Dropout{Prob: 0.25}
	out := d.Apply(anydiff.NewConst(ones), 1).Output().Data().([]float64)
	var zeros int
	for _, x := range out {
		if x == 0 {
			zeros++
		} else if x < 1.3333 || x > 1.3334 {
			t.Fatalf("unexpected kept value: %f", x)
		}
	}
	if zeros < 150 || zeros > 350 {
		t.Errorf("unexpected number of dropped inputs: %d", zeros)
	}
}

func randomSeqs(c anyvec.Creator, size int, lengths []int) (anyseq.Seq, []*anydiff.Var) {
	var maxLen int
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	var batches []*anyseq.ResBatch
	var vars []*anydiff.Var
	for t := 0; t < maxLen; t++ {
		present := make([]bool, len(lengths))
		var n int
		for i, l := range lengths {
			if t < l {
				present[i] = true
				n++
			}
		}
		vec := c.MakeVector(n * size)
		anyvec.Rand(vec, anyvec.Normal, nil)
		v := anydiff.NewVar(vec)
		vars = append(vars, v)
		batches = append(batches, &anyseq.ResBatch{Packed: v, Present: present})
	}
	return anyseq.ResSeq(c, batches), vars
}

func seqLengths(s anyseq.Seq, n int) []int {
	res := make([]int, n)
	for _, batch := range s.Output() {
		for i, pres := range batch.Present {
			if pres {
				res[i]++
			}
		}
	}
	return res
}

func vecSize(s anyseq.Seq) int {
	batch := s.Output()[0]
	return batch.Packed.Len() / batch.NumPresent()
}

func seqString(s []*anyseq.Batch) string {
	var parts []string
	for _, x := range s {
		parts = append(parts, fmt.Sprintf("{Packed: %v, Present: %v}", x.Packed.Data(),
			x.Present))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func seqsEquivalent(s1, s2 []*anyseq.Batch) bool {
	if len(s1) != len(s2) {
		return false
	}
	for i, b1 := range s1 {
		b2 := s2[i]
		if !reflect.DeepEqual(b1.Present, b2.Present) {
			return false
		}
		if b1.Packed.Len() != b2.Packed.Len() {
			return false
		}
		diff := b1.Packed.Copy()
		diff.Sub(b2.Packed)
		switch max := anyvec.AbsMax(diff).(type) {
		case float32:
			if max > 1e-3 {
				return false
			}
		case float64:
			if max > 1e-5 {
				return false
			}
		default:
			panic(fmt.Sprintf("unsupported numeric type: %T", max))
		}
	}
	return true
}
