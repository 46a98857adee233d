package seqrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

type perSeqRes struct {
	In    anyseq.Seq
	Pools []*anydiff.Var
	Out   anyseq.Seq
	V     anydiff.VarSet
}

// PerSeq unpacks a sequence batch into one list of
// timestep vectors per sequence, applies f to the lists,
// and packs the results back into a sequence batch.
//
// This makes it possible to perform operations which
// change the number of timesteps in a sequence (e.g.
// downsampling or segmentation) while still being able to
// back-propagate through the result.
//
// The resulting lists may have any lengths, but the i-th
// result list must correspond to the i-th input sequence.
// Sequences without any result timesteps are marked as
// absent in every output batch.
func PerSeq(in anyseq.Seq, f func(seqs [][]anydiff.Res) [][]anydiff.Res) anyseq.Seq {
	res := &perSeqRes{In: in}

	var seqs [][]anydiff.Res
	for t, batch := range in.Output() {
		pool := anydiff.NewVar(batch.Packed)
		res.Pools = append(res.Pools, pool)
		if t == 0 {
			seqs = make([][]anydiff.Res, len(batch.Present))
		}
		if batch.NumPresent() == 0 {
			continue
		}
		vecSize := batch.Packed.Len() / batch.NumPresent()
		var offset int
		for i, pres := range batch.Present {
			if pres {
				seqs[i] = append(seqs[i], anydiff.Slice(pool, offset, offset+vecSize))
				offset += vecSize
			}
		}
	}

	res.Out = packSeqs(in.Creator(), f(seqs))
	res.V = anydiff.MergeVarSets(res.Out.Vars())
	for _, p := range res.Pools {
		res.V.Del(p)
	}
	res.V = anydiff.MergeVarSets(res.V, in.Vars())
	return res
}

func (p *perSeqRes) Creator() anyvec.Creator {
	return p.In.Creator()
}

func (p *perSeqRes) Output() []*anyseq.Batch {
	return p.Out.Output()
}

func (p *perSeqRes) Vars() anydiff.VarSet {
	return p.V
}

func (p *perSeqRes) Propagate(u []*anyseq.Batch, g anydiff.Grad) {
	propIn := g.Intersects(p.In.Vars())
	if propIn {
		for _, pool := range p.Pools {
			g[pool] = pool.Vector.Creator().MakeVector(pool.Vector.Len())
		}
	}

	p.Out.Propagate(u, g)

	if !propIn {
		return
	}
	inBatches := p.In.Output()
	downstream := make([]*anyseq.Batch, len(p.Pools))
	for t, pool := range p.Pools {
		downstream[t] = &anyseq.Batch{
			Packed:  g[pool],
			Present: inBatches[t].Present,
		}
		delete(g, pool)
	}
	p.In.Propagate(downstream, g)
}

// packSeqs packs per-sequence timestep lists into a
// sequence batch.
func packSeqs(c anyvec.Creator, seqs [][]anydiff.Res) anyseq.Seq {
	var batches []*anyseq.ResBatch
	for t := 0; ; t++ {
		present := make([]bool, len(seqs))
		var vecs []anydiff.Res
		for i, seq := range seqs {
			if t < len(seq) {
				present[i] = true
				vecs = append(vecs, seq[t])
			}
		}
		if len(vecs) == 0 {
			break
		}
		batches = append(batches, &anyseq.ResBatch{
			Packed:  anydiff.Concat(vecs...),
			Present: present,
		})
	}
	return anyseq.ResSeq(c, batches)
}
