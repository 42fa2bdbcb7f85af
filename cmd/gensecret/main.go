package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Access tokens signer requires at least 32 bytes key
const SecretKeyBytesLen = 32

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		size     int
		encoding string
	)

	cmd := &cobra.Command{
		Use:          "gensecret",
		Short:        "Generate random SECRET_KEY for bazario",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < SecretKeyBytesLen {
				return fmt.Errorf("secret must be at least %d bytes, got %d", SecretKeyBytesLen, size)
			}

			b := make([]byte, size)
			if _, err := rand.Read(b); err != nil {
				return fmt.Errorf("error while generating secret key: %w", err)
			}

			switch encoding {
			case "hex":
				_, err := fmt.Fprintln(out, hex.EncodeToString(b))
				return err
			case "base64":
				_, err := fmt.Fprintln(out, base64.RawURLEncoding.EncodeToString(b))
				return err
			default:
				return fmt.Errorf("unknown encoding %q, use hex or base64", encoding)
			}
		},
	}

	cmd.Flags().IntVarP(&size, "bytes", "b", SecretKeyBytesLen, "Count of random bytes")
	cmd.Flags().StringVarP(&encoding, "encoding", "e", "hex", "Output encoding: hex or base64")

	return cmd
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
