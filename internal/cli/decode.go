package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/shamela/internal/cli/appctx"
	"github.com/lherron/shamela/internal/decode"
	"github.com/lherron/shamela/internal/render"
)

var decodeCmd = &cobra.Command{
	Use:   "decode legacy|codepage [input]",
	Short: "Decode legacy-encoded or Windows-1256 bytes to Unicode text",
	Long: `Decodes a byte string with the legacy single-byte Arabic table or with the
Windows-1256 code page. Input is a file path, "-" or nothing for stdin, or a
hex string with --hex.

Bytes the legacy table does not map are printed as [xx]; --audit lists them.

Examples:
  shamela decode legacy --hex "41 42 6b 43"
  shamela decode legacy --metadata field.bin
  shamela decode legacy --audit < page.bin
  shamela decode codepage --hex "c7 e1 e1 e5"
  shamela decode codepage --multi cell.bin
`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"legacy", "codepage"},
	RunE:      appctx.WithApp(appctx.Local(), runDecode),
}

var (
	decodeMetadata bool
	decodeHex      bool
	decodeAudit    bool
	decodeMulti    bool
)

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().BoolVar(&decodeMetadata, "metadata", false, "Use the metadata profile (field terminator becomes ':', noise glyphs dropped)")
	decodeCmd.Flags().BoolVar(&decodeHex, "hex", false, "Treat the input as hex digits")
	decodeCmd.Flags().BoolVar(&decodeAudit, "audit", false, "Print unmapped byte codes and their counts instead of the text")
	decodeCmd.Flags().BoolVar(&decodeMulti, "multi", false, "Split a decoded code-page cell on commas, one value per line")
}

func runDecode(app *appctx.App, cmd *cobra.Command, args []string) error {
	mode := args[0]
	if mode != "legacy" && mode != "codepage" {
		return fmt.Errorf("unknown decoder %q (want legacy or codepage)", mode)
	}

	input := "-"
	if len(args) > 1 {
		input = args[1]
	}
	data, err := readDecodeInput(cmd.InOrStdin(), input, decodeHex)
	if err != nil {
		return err
	}

	if mode == "codepage" {
		text := decode.DecodeCodepage(data)
		if !decodeMulti {
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}
		for _, v := range decode.ParseMultiValue(text) {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	}

	profile := decode.ProfileText
	if decodeMetadata {
		profile = decode.ProfileMetadata
	}
	text := decode.Decode(data, profile)
	app.Log.WithField("profile", profile.String()).WithField("bytes", len(data)).Debug("decoded")

	if !decodeAudit {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	if !decode.HasUnmapped(text) {
		fmt.Fprintln(cmd.OutOrStdout(), "All bytes mapped")
		return nil
	}
	counts := decode.CountUnmapped(text)
	codes := decode.UnmappedCodes(text)
	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, []string{code, strconv.Itoa(counts[code])})
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{}).RenderTable([]string{"CODE", "COUNT"}, rows)
}

// readDecodeInput reads input as a literal hex string when asHex is set and
// input is not a readable file, otherwise from the file or stdin.
func readDecodeInput(stdin io.Reader, input string, asHex bool) ([]byte, error) {
	var raw []byte
	switch {
	case input == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = data
	case asHex:
		if data, err := os.ReadFile(input); err == nil {
			raw = data
		} else {
			raw = []byte(input)
		}
	default:
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		raw = data
	}

	if !asHex {
		return raw, nil
	}
	digits := strings.Join(strings.Fields(string(raw)), "")
	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}
