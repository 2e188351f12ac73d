package cmd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jpfielding/lj92.go/pkg/compress/lj92"
	"github.com/jpfielding/lj92.go/pkg/logging"
	"github.com/jpfielding/lj92.go/pkg/rawio"
	"github.com/jpfielding/lj92.go/pkg/util"
	"github.com/spf13/cobra"
)

// decodeOptions are the flags shared by decode and stitch.
type decodeOptions struct {
	linearize []uint16
	fillDead  bool
	open      []lj92.Option
}

func addDecodeFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("linearize", "", "file of little endian uint16 values mapping decoded samples")
	pf.Bool("fill-dead", false, "replace zero samples with the previous sample")
	pf.Bool("stepped", false, "decode Huffman codes bit by bit instead of with the lookup table")
	pf.Int("max-pixels", lj92.DefaultMaxPixels, "largest frame accepted")
}

func readDecodeOptions(ctx context.Context, cmd *cobra.Command) (decodeOptions, error) {
	var opts decodeOptions
	lin, _ := cmd.Flags().GetString("linearize")
	opts.fillDead, _ = cmd.Flags().GetBool("fill-dead")
	stepped, _ := cmd.Flags().GetBool("stepped")
	maxPixels, _ := cmd.Flags().GetInt("max-pixels")
	if stepped {
		opts.open = append(opts.open, lj92.WithSteppedHuffman())
	}
	opts.open = append(opts.open, lj92.WithMaxPixels(maxPixels))
	if lin != "" {
		table, err := readLinearization(ctx, lin)
		if err != nil {
			return opts, err
		}
		opts.linearize = table
	}
	return opts, nil
}

// readLinearization loads a table of little endian uint16 entries.
func readLinearization(ctx context.Context, uri string) ([]uint16, error) {
	raw, err := rawio.ReadURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 || len(raw)%2 != 0 {
		return nil, fmt.Errorf("linearization table %s: %d bytes is not a uint16 table", uri, len(raw))
	}
	table := make([]uint16, len(raw)/2)
	for i := range table {
		table[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	return table, nil
}

// frameMax is the PGM/TIFF max value for a decoded frame.
func frameMax(h lj92.Header, linearize []uint16) uint16 {
	if len(linearize) > 0 {
		var top uint16
		for _, v := range linearize {
			top = max(top, v)
		}
		return top
	}
	return uint16(1<<h.Precision - 1)
}

// decodeFrame decodes one lossless JPEG into a new frame.
func decodeFrame(ctx context.Context, data []byte, opts decodeOptions) (*rawio.Frame, error) {
	d, err := lj92.Open(data, opts.open...)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	h := d.Header()
	slog.DebugContext(ctx, "decoding", "header", h.String())
	f := rawio.NewFrame(h.Width, h.Height, frameMax(h, opts.linearize))
	err = d.Decode(lj92.Target{
		Samples:        f.Samples,
		Linearize:      opts.linearize,
		FillDeadPixels: opts.fillDead,
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// outputPath maps an input uri to dir/<base>.<format>[.zst].
func outputPath(dir, uri string, format rawio.Format, zst bool) string {
	base := filepath.Base(strings.TrimSuffix(uri, rawio.ZstdExt))
	if uri == "-" {
		base = "stdin"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base)) + "." + string(format)
	if zst {
		base += rawio.ZstdExt
	}
	return filepath.Join(dir, base)
}

// NewDecodeCmd decodes frames to PGM or TIFF, one goroutine per frame
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode URI...",
		Short: "decode lossless JPEG frames to pgm or tiff",
		Long:  "Decodes each frame on its own goroutine and writes <out>/<name>.<format>, zstd compressed with --zstd.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			formatName, _ := cmd.Flags().GetString("format")
			zst, _ := cmd.Flags().GetBool("zstd")
			format, err := rawio.ParseFormat(formatName)
			if err != nil {
				return err
			}
			opts, err := readDecodeOptions(ctx, cmd)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			errs := make([]error, len(args))
			var wg sync.WaitGroup
			for i, uri := range args {
				i, uri := i, uri
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs[i] = decodeOne(ctx, uri, outputPath(outDir, uri, format, zst), format, opts)
				}()
			}
			wg.Wait()
			return errors.Join(errs...)
		},
	}
	addDecodeFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", ".", "output directory")
	pf.StringP("format", "f", "pgm", "output format (pgm|tiff)")
	pf.Bool("zstd", false, "zstd compress the output")
	return cmd
}

func decodeOne(ctx context.Context, uri, out string, format rawio.Format, opts decodeOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := rawio.ReadURI(ctx, uri)
	if err != nil {
		return fmt.Errorf("%s: %w", uri, err)
	}
	ctx = logging.AppendCtx(ctx, slog.String("uri", uri), slog.String("frame", util.FrameID(data)))
	f, err := decodeFrame(ctx, data, opts)
	if err != nil {
		slog.ErrorContext(ctx, "decode failed", "error", err)
		return fmt.Errorf("%s: %w", uri, err)
	}
	if err := rawio.WriteFrame(out, format, f); err != nil {
		return fmt.Errorf("%s: %w", out, err)
	}
	slog.InfoContext(ctx, "decoded", "width", f.Width, "height", f.Height, "out", out)
	return nil
}

// NewStitchCmd decodes a left and right half into one frame
func NewStitchCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stitch LEFT RIGHT",
		Short: "decode two half width frames side by side into one image",
		Long:  "Decodes LEFT and RIGHT directly into the columns of a single frame by striding the output, then writes it as pgm or tiff.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			format, err := rawio.FormatOf(out)
			if err != nil {
				return err
			}
			opts, err := readDecodeOptions(ctx, cmd)
			if err != nil {
				return err
			}
			f, err := stitch(ctx, args[0], args[1], opts)
			if err != nil {
				return err
			}
			if err := rawio.WriteFrame(out, format, f); err != nil {
				return err
			}
			slog.InfoContext(ctx, "stitched", "width", f.Width, "height", f.Height, "out", out)
			return nil
		},
	}
	addDecodeFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "stitched.pgm", "output file (.pgm, .tiff, optionally .zst)")
	return cmd
}

func stitch(ctx context.Context, leftURI, rightURI string, opts decodeOptions) (*rawio.Frame, error) {
	var halves [2]*lj92.Decoder
	for i, uri := range []string{leftURI, rightURI} {
		data, err := rawio.ReadURI(ctx, uri)
		if err != nil {
			return nil, err
		}
		d, err := lj92.Open(data, opts.open...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", uri, err)
		}
		defer d.Close()
		halves[i] = d
	}
	left, right := halves[0].Header(), halves[1].Header()
	if left.Height != right.Height {
		return nil, fmt.Errorf("halves differ in height: %d and %d", left.Height, right.Height)
	}
	f := rawio.NewFrame(left.Width+right.Width, left.Height, max(frameMax(left, opts.linearize), frameMax(right, opts.linearize)))
	err := halves[0].Decode(lj92.Target{
		Samples:        f.Samples,
		WriteLength:    left.Width,
		SkipLength:     right.Width,
		Linearize:      opts.linearize,
		FillDeadPixels: opts.fillDead,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", leftURI, err)
	}
	err = halves[1].Decode(lj92.Target{
		Samples:        f.Samples[left.Width:],
		WriteLength:    right.Width,
		SkipLength:     left.Width,
		Linearize:      opts.linearize,
		FillDeadPixels: opts.fillDead,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rightURI, err)
	}
	return f, nil
}
