package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/printnow-backend/internal/modules/ordercode"
)

func codeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Convert between order ids and display codes",
	}
	cmd.AddCommand(codeEncodeCmd(), codeDecodeCmd())
	return cmd
}

func codeEncodeCmd() *cobra.Command {
	var (
		year   int
		prefix string
	)
	cmd := &cobra.Command{
		Use:   "encode <id>",
		Short: "Print the display code for an order id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			if prefix != "" {
				p := ordercode.Prefix(strings.ToUpper(prefix))
				if p != ordercode.PrefixDoc && p != ordercode.PrefixPhoto {
					return fmt.Errorf("prefix must be DOC or PHOTO")
				}
				fmt.Fprintln(cmd.OutOrStdout(), ordercode.EncodeTyped(p, id))
				return nil
			}
			created := time.Now()
			if year > 0 {
				created = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ordercode.Encode(id, created))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "order creation year (default current)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "typed code prefix: DOC or PHOTO")
	cmd.MarkFlagsMutuallyExclusive("year", "prefix")
	return cmd
}

func codeDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <code>",
		Short: "Print the order id behind a display code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := ordercode.Decode(args[0])
			if !ok {
				return fmt.Errorf("%q is not an order code", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}
