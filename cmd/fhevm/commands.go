package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/luxfi/fhevm"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fhevm",
		Short: "Validate FHE contract inputs",
		Long: `fhevm checks plaintext values against the unsigned integer types an FHE
contract accepts (uint8 through uint256) and checks address syntax.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate a value or an address",
	}
	validate.AddCommand(newValidateValueCmd(), newValidateAddressCmd())

	root.AddCommand(validate, newBoundsCmd(), newHexCmd())
	return root
}

func newValidateValueCmd() *cobra.Command {
	var (
		typeName string
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "value <integer>",
		Short: "Check that an integer fits a type",
		Long: `Check that an integer fits a type. The value may be decimal or 0x hex.
Prints true or false; with --strict an out-of-range value is an error.
Put -- before a negative value so it is not read as a flag.`,
		Example: `  fhevm validate value 4294967295 --type uint32
  fhevm validate value 0x100 --type uint8 --strict
  fhevm validate value --type uint64 -- -1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := fhevm.ParseTypeTag(typeName)
			if err != nil {
				return err
			}
			if strict {
				n, err := fhevm.ToBoundedInteger(args[0], tag)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s fits %s\n", n, tag)
				return nil
			}
			ok, err := fhevm.ValidateValue(args[0], tag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", string(fhevm.DefaultTypeTag), "Type tag: uint8, uint16, uint32, uint64, uint128, uint256")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of printing false when out of range")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w (put -- before a negative value, e.g. fhevm validate value -- -1)", err)
	})
	return cmd
}

func newValidateAddressCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "address <address>",
		Short: "Check that a string is a 0x-prefixed 20-byte hex address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strict {
				addr, err := fhevm.ParseAddress(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), fhevm.ValidateAddress(args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on an invalid address and print the checksummed form otherwise")
	return cmd
}

func newBoundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bounds",
		Short: "List supported types and their maximum values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tBITS\tMAX")
			for _, t := range fhevm.SupportedTypeTags() {
				fmt.Fprintf(w, "%s\t%d\t%s\n", t, t.Bits(), t.Max())
			}
			return w.Flush()
		},
	}
}

func newHexCmd() *cobra.Command {
	hexCmd := &cobra.Command{
		Use:   "hex",
		Short: "Convert between strings and hex",
	}
	hexCmd.AddCommand(
		&cobra.Command{
			Use:   "encode <text>",
			Short: "Hex-encode the bytes of text",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), fhevm.BytesToHex([]byte(args[0])))
			},
		},
		&cobra.Command{
			Use:   "decode <hex>",
			Short: "Decode hex, with or without 0x, to text",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := fhevm.HexToBytes(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			},
		},
	)
	return hexCmd
}
