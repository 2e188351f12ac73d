package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jpfielding/lj92.go/pkg/compress/lj92"
	"github.com/jpfielding/lj92.go/pkg/rawio"
	"github.com/jpfielding/lj92.go/pkg/util"
	"github.com/spf13/cobra"
)

// frameInfo is one line of info output.
type frameInfo struct {
	URI    string      `json:"uri"`
	ID     string      `json:"id"`
	MD5    string      `json:"md5"`
	Bytes  int         `json:"bytes"`
	Header lj92.Header `json:"header"`
	Error  string      `json:"error,omitempty"`
}

// NewInfoCmd prints frame headers without decoding the scan
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info URI...",
		Short: "print lossless JPEG frame headers",
		Long:  "Parses every frame up to its scan and prints geometry, predictor and a content id. URIs may be files, http(s) URLs or - for stdin.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			failed := 0
			for _, uri := range args {
				info := readInfo(ctx, uri)
				if info.Error != "" {
					failed++
				}
				if err := printInfo(cmd.OutOrStdout(), format, info); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d frames failed to parse", failed, len(args))
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("format", "f", "text", "output format (text|json)")
	return cmd
}

func readInfo(ctx context.Context, uri string) frameInfo {
	info := frameInfo{URI: uri}
	data, err := rawio.ReadURI(ctx, uri)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.ID = util.FrameID(data)
	info.MD5 = util.Md5ThenHex(data)
	info.Bytes = len(data)
	d, err := lj92.Open(data)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer d.Close()
	info.Header = d.Header()
	return info
}

func printInfo(w io.Writer, format string, info frameInfo) error {
	switch format {
	case "json":
		j, err := json.Marshal(info)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(j))
		return err
	default:
		if info.Error != "" {
			_, err := fmt.Fprintf(w, "%s\terror: %s\n", info.URI, info.Error)
			return err
		}
		_, err := fmt.Fprintf(w, "%s\t%s\tid=%s md5=%s bytes=%d\n", info.URI, info.Header, info.ID, info.MD5, info.Bytes)
		return err
	}
}
