package main

import (
	"fmt"
	"strconv"
	"strings"

	"asyncScope/symbols"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <hex-addr>...",
	Short: "Resolve addresses to function names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("symbols") {
			if cfg.SymbolFile, err = cmd.Flags().GetString("symbols"); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("binary") {
			if cfg.Binary, err = cmd.Flags().GetString("binary"); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("demangle") {
			if cfg.Demangle, err = cmd.Flags().GetBool("demangle"); err != nil {
				return err
			}
		}

		resolver, err := buildResolver(cfg, newLogger(cfg.Debug))
		if err != nil {
			return err
		}

		missing := color.New(color.FgRed).SprintFunc()
		for _, arg := range args {
			addr, err := strconv.ParseUint(strings.TrimPrefix(arg, "0x"), 16, 64)
			if err != nil {
				return errors.Wrapf(err, "bad address %q", arg)
			}
			name, ok := resolver.Lookup(addr)
			if !ok {
				name = missing(name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", symbols.FormatAddress(addr), name)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("symbols", "", "symbol listing (<hex-addr> <type> <name>)")
	resolveCmd.Flags().String("binary", "", "binary for the addr2line fallback")
	resolveCmd.Flags().Bool("demangle", false, "demangle names from the symbol listing")
}
