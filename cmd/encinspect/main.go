// Command encinspect loads an encoder config, prints the
// resulting encoder, and runs random sequences through
// it.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc"
	"github.com/unixpickle/anyenc/encyaml"
	"github.com/unixpickle/anyenc/segment"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
	"k8s.io/klog/v2"
)

type options struct {
	Lengths []int
	Double  bool
	Train   bool
	Save    string
}

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "encinspect CONFIG",
		Short: "Inspect an encoder built from a YAML config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd.OutOrStdout(), args[0], &opts)
		},
	}
	cmd.Flags().IntSliceVar(&opts.Lengths, "lengths", []int{20, 13, 7},
		"lengths of the random input sequences")
	cmd.Flags().BoolVar(&opts.Double, "double", false, "use 64-bit vectors")
	cmd.Flags().BoolVar(&opts.Train, "train", false, "run the encoder in training mode")
	cmd.Flags().StringVar(&opts.Save, "save", "", "serialize the encoder to this file")
	cmd.Flags().AddGoFlagSet(flag.CommandLine)
	return cmd
}

func inspect(w io.Writer, path string, opts *options) error {
	var c anyvec.Creator = anyvec32.CurrentCreator()
	if opts.Double {
		c = anyvec64.DefaultCreator{}
	}
	params, enc, err := encyaml.LoadFile(c, path)
	if err != nil {
		return err
	}
	klog.V(1).Infof("loaded %s with defaults %+v", path, params.Defaults)

	describe(w, enc, 0)
	fmt.Fprintf(w, "parameters: %d (%d tensors)\n", params.NumParams(),
		len(params.Parameters()))

	inDim := inputDim(enc, params)
	in := randomInput(c, inDim, opts.Lengths)
	enc.SetTrain(opts.Train)
	out := enc.Transduce(in)
	fmt.Fprintf(w, "input lengths: %v\n", opts.Lengths)
	fmt.Fprintf(w, "output lengths: %v\n", seqLengths(out, len(opts.Lengths)))
	if batches := out.Output(); len(batches) > 0 {
		fmt.Fprintf(w, "output size: %d\n",
			batches[0].Packed.Len()/batches[0].NumPresent())
	}

	if opts.Save != "" {
		s, ok := enc.(serializer.Serializer)
		if !ok {
			return errors.Errorf("save encoder: %T is not serializable", enc)
		}
		data, err := serializer.SerializeWithType(s)
		if err != nil {
			return errors.Wrap(err, "save encoder")
		}
		if err := os.WriteFile(opts.Save, data, 0644); err != nil {
			return errors.Wrap(err, "save encoder")
		}
		klog.Infof("saved encoder to %s", opts.Save)
	}
	return nil
}

func describe(w io.Writer, enc anyenc.Encoder, depth int) {
	indent := strings.Repeat("  ", depth)
	switch enc := enc.(type) {
	case *anyenc.IdentityEncoder:
		fmt.Fprintf(w, "%sIdentityEncoder\n", indent)
	case *anyenc.LSTMEncoder:
		fmt.Fprintf(w, "%sLSTMEncoder %+v (%s)\n", indent, enc.Config, enc.Delegate)
	case *anyenc.ResidualLSTMEncoder:
		fmt.Fprintf(w, "%sResidualLSTMEncoder %+v\n", indent, enc.Config)
	case *anyenc.PyramidalLSTMEncoder:
		fmt.Fprintf(w, "%sPyramidalLSTMEncoder %+v\n", indent, enc.Config)
	case *anyenc.ConvBiRNNEncoder:
		fmt.Fprintf(w, "%sConvBiRNNEncoder %+v\n", indent, enc.Config)
	case *anyenc.ModularEncoder:
		fmt.Fprintf(w, "%sModularEncoder input_dim=%d\n", indent, enc.InputDim)
		for _, m := range enc.Modules {
			describe(w, m, depth+1)
		}
	case *anyenc.SegmentingEncoder:
		fmt.Fprintf(w, "%sSegmentingEncoder %+v epoch=%d weight=%g\n", indent,
			enc.Schedule, enc.Epoch, enc.Weight)
		describe(w, enc.Embed, depth+1)
		if p, ok := enc.Segmenter.(*segment.Policy); ok {
			fmt.Fprintf(w, "%s  SegmentPolicy composer=%s\n", indent, p.Composer)
		}
	default:
		fmt.Fprintf(w, "%s%T\n", indent, enc)
	}
}

// inputDim finds the input size an encoder expects.
func inputDim(enc anyenc.Encoder, params *anyenc.Params) int {
	switch enc := enc.(type) {
	case *anyenc.LSTMEncoder:
		return enc.Config.InputDim
	case *anyenc.ResidualLSTMEncoder:
		return enc.Config.InputDim
	case *anyenc.PyramidalLSTMEncoder:
		return enc.Config.InputDim
	case *anyenc.ConvBiRNNEncoder:
		return enc.Config.InputDim
	case *anyenc.ModularEncoder:
		return enc.InputDim
	case *anyenc.SegmentingEncoder:
		return inputDim(enc.Embed, params)
	}
	return params.Defaults.LayerDim
}

func randomInput(c anyvec.Creator, dim int, lengths []int) anyseq.Seq {
	seqs := make([][]anyvec.Vector, len(lengths))
	for i, l := range lengths {
		for j := 0; j < l; j++ {
			v := c.MakeVector(dim)
			anyvec.Rand(v, anyvec.Normal, nil)
			seqs[i] = append(seqs[i], v)
		}
	}
	return anyseq.ConstSeqList(c, seqs)
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
