package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jpfielding/lj92.go/pkg/compress/bitunpack"
	"github.com/jpfielding/lj92.go/pkg/compress/lj92"
	"github.com/jpfielding/lj92.go/pkg/rawio"
	"github.com/jpfielding/lj92.go/pkg/util"
	"github.com/spf13/cobra"
)

// NewEncodeCmd compresses a pgm or tiff frame to lossless JPEG
func NewEncodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode IN",
		Short: "encode a pgm or tiff frame as lossless JPEG",
		Long:  "Encodes IN (.pgm or .tiff, optionally .zst) with an optimal Huffman table. The output is zstd compressed when it ends in .zst.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			verify, _ := cmd.Flags().GetBool("verify")
			enc := &lj92.Encoder{}
			enc.Predictor, _ = cmd.Flags().GetInt("predictor")
			enc.Precision, _ = cmd.Flags().GetInt("precision")
			enc.RestartRows, _ = cmd.Flags().GetInt("restart-rows")
			enc.Comment, _ = cmd.Flags().GetString("comment")

			f, err := rawio.ReadFrame(ctx, args[0])
			if err != nil {
				return err
			}
			if enc.Precision == 0 {
				enc.Precision = f.Precision()
			}
			var buf bytes.Buffer
			if err := lj92.EncodeSamples(&buf, f.Samples, f.Width, f.Height, enc); err != nil {
				return err
			}
			if verify {
				if err := verifyEncoded(buf.Bytes(), f); err != nil {
					return err
				}
			}
			w, err := rawio.Create(out)
			if err != nil {
				return err
			}
			if _, err := w.Write(buf.Bytes()); err != nil {
				w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			slog.InfoContext(ctx, "encoded",
				"frame", util.FrameID(buf.Bytes()),
				"in", args[0],
				"out", out,
				"bytes", buf.Len(),
				"ratio", float64(buf.Len())/float64(2*len(f.Samples)))
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "out.lj92", "output file")
	pf.IntP("predictor", "p", 1, "predictor selection (1-7)")
	pf.Int("precision", 0, "bits per sample, 0 derives it from the input max value")
	pf.Int("restart-rows", 0, "rows per restart interval, 0 for none")
	pf.String("comment", "", "COM segment text")
	pf.Bool("verify", false, "decode the result and compare before writing")
	return cmd
}

func verifyEncoded(data []byte, f *rawio.Frame) error {
	d, err := lj92.Open(data)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	defer d.Close()
	got := make([]uint16, f.Width*f.Height)
	if err := d.Decode(lj92.Target{Samples: got}); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !slices.Equal(got, f.Samples[:len(got)]) {
		return fmt.Errorf("verify: decoded samples differ from the input")
	}
	return nil
}

// NewUnpackCmd expands bit packed raw sensor data to a pgm or tiff frame
func NewUnpackCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack IN",
		Short: "unpack bit packed raw sensor data to pgm or tiff",
		Long:  "Unpacks IN, little endian 16-bit words holding --bits wide samples, into a --width x --height frame.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			bits, _ := cmd.Flags().GetInt("bits")
			format, err := rawio.FormatOf(out)
			if err != nil {
				return err
			}
			if width <= 0 || height <= 0 {
				return fmt.Errorf("--width and --height are required")
			}
			if bits < 1 || bits > 16 {
				return fmt.Errorf("--bits must be 1..16, got %d", bits)
			}
			raw, err := rawio.ReadURI(ctx, args[0])
			if err != nil {
				return err
			}
			if have := bitunpack.Count(len(raw), bits); have < width*height {
				return fmt.Errorf("%s holds %d samples, need %d", args[0], have, width*height)
			}
			f := rawio.NewFrame(width, height, uint16(1<<bits-1))
			dst := make([]uint16, bitunpack.Count(len(raw), bits))
			n, stats, err := bitunpack.Unpack(dst, raw, bits)
			if err != nil {
				return err
			}
			copy(f.Samples, dst[:n])
			if err := rawio.WriteFrame(out, format, f); err != nil {
				return err
			}
			slog.InfoContext(ctx, "unpacked", "in", args[0], "out", out, "samples", n, "min", stats.Min, "max", stats.Max)
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "out.pgm", "output file (.pgm, .tiff, optionally .zst)")
	pf.Int("width", 0, "frame width in samples")
	pf.Int("height", 0, "frame height in samples")
	pf.Int("bits", 14, "bits per packed sample")
	return cmd
}
