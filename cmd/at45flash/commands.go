package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ardnew/dataflash/flash"
	"github.com/ardnew/dataflash/pkg"
)

// withDevice opens the device, runs fn and closes it, keeping the first
// error.
func withDevice(opts *options, fn func(*flash.Device) error) (err error) {
	s, err := open(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s.dev)
}

// parseUint accepts decimal, 0x hex, 0o octal or 0b binary.
func parseUint(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, pkg.ErrInvalidParameter)
	}
	return uint32(v), nil
}

// parseSize is parseUint with an optional k or m suffix.
func parseSize(s string) (uint32, error) {
	mult := uint32(1)
	switch lower := strings.ToLower(s); {
	case strings.HasSuffix(lower, "k"):
		mult, s = 1024, s[:len(s)-1]
	case strings.HasSuffix(lower, "m"):
		mult, s = 1024*1024, s[:len(s)-1]
	}
	v, err := parseUint(s)
	if err != nil {
		return 0, err
	}
	return v * mult, nil
}

func newDetectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Detect the chip and print its geometry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(opts, func(dev *flash.Device) error {
				d, err := dev.Density()
				if err != nil {
					return err
				}
				g, err := dev.Geometry()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "part:      %v\n", d)
				fmt.Fprintf(out, "page size: %d bytes\n", g.PageSize)
				fmt.Fprintf(out, "pages:     %d\n", g.Pages)
				fmt.Fprintf(out, "blocks:    %d\n", g.Blocks())
				fmt.Fprintf(out, "capacity:  %d bytes\n", g.Capacity())
				return nil
			})
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Read the status register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(opts, func(dev *flash.Device) error {
				status, err := dev.ReadStatus()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func newReadCmd(opts *options) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "read ADDR LEN",
		Short: "Read LEN bytes starting at ADDR",
		Long:  "Read LEN bytes starting at linear address ADDR and print a hex dump, or save them with --out",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseUint(args[0])
			if err != nil {
				return err
			}
			n, err := parseSize(args[1])
			if err != nil {
				return err
			}

			buf := make([]byte, n)
			err = withDevice(opts, func(dev *flash.Device) error {
				return dev.ReadBytes(addr, buf)
			})
			if err != nil {
				return err
			}

			if outPath != "" {
				return os.WriteFile(outPath, buf, 0644)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), hex.Dump(buf))
			return err
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write raw bytes to file instead of a hex dump")
	return cmd
}

func newWriteCmd(opts *options) *cobra.Command {
	var hexData, inPath, text string

	cmd := &cobra.Command{
		Use:   "write ADDR",
		Short: "Write bytes starting at ADDR",
		Long:  "Write the bytes given by exactly one of --hex, --text or --in starting at linear address ADDR. No erase is needed first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseUint(args[0])
			if err != nil {
				return err
			}

			var data []byte
			switch {
			case hexData != "" && text == "" && inPath == "":
				if data, err = hex.DecodeString(hexData); err != nil {
					return fmt.Errorf("--hex: %w", err)
				}
			case text != "" && hexData == "" && inPath == "":
				data = []byte(text)
			case inPath != "" && hexData == "" && text == "":
				if data, err = os.ReadFile(inPath); err != nil {
					return err
				}
			default:
				return errors.New("exactly one of --hex, --text or --in is required")
			}

			err = withDevice(opts, func(dev *flash.Device) error {
				return dev.WriteBytes(addr, data)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes at 0x%06X\n", len(data), addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&hexData, "hex", "", "hex encoded bytes")
	cmd.Flags().StringVar(&text, "text", "", "literal text")
	cmd.Flags().StringVar(&inPath, "in", "", "file holding the bytes")
	return cmd
}

func newEraseCmd(opts *options) *cobra.Command {
	var (
		all      bool
		page     string
		block    string
		addrFlag string
		sizeFlag string
	)

	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Erase a page, a block, a sized range or the whole chip",
		Long: "Erase with exactly one of --chip, --page N, --block N or --addr ADDR --size SIZE.\n" +
			"Sized erases cover whole 8-page blocks and include --erase-margin extra pages.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected := 0
			for _, set := range []bool{all, page != "", block != "", addrFlag != ""} {
				if set {
					selected++
				}
			}
			if selected != 1 {
				return errors.New("exactly one of --chip, --page, --block or --addr is required")
			}

			var run func(*flash.Device) error
			switch {
			case all:
				run = (*flash.Device).ChipErase
			case page != "":
				n, err := parseUint(page)
				if err != nil {
					return err
				}
				run = func(dev *flash.Device) error { return dev.ErasePage(n) }
			case block != "":
				n, err := parseUint(block)
				if err != nil {
					return err
				}
				run = func(dev *flash.Device) error { return dev.EraseBlock(n) }
			default:
				addr, err := parseUint(addrFlag)
				if err != nil {
					return err
				}
				size, err := parseSize(sizeFlag)
				if err != nil {
					return err
				}
				run = func(dev *flash.Device) error { return dev.EraseSized(addr, size) }
			}

			if err := withDevice(opts, run); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "erased")
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "chip", false, "erase the whole chip")
	cmd.Flags().StringVar(&page, "page", "", "erase one page")
	cmd.Flags().StringVar(&block, "block", "", "erase one 8-page block")
	cmd.Flags().StringVar(&addrFlag, "addr", "", "start of a sized erase")
	cmd.Flags().StringVar(&sizeFlag, "size", "4k", "length of a sized erase (e.g. 4k, 32k, 64k)")
	return cmd
}

func newIDCmd(opts *options) *cobra.Command {
	var provision bool

	cmd := &cobra.Command{
		Use:   "id",
		Short: "Print or provision the identifier stored in the last page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDevice(opts, func(dev *flash.Device) error {
				if provision {
					u := uuid.New()
					addr, err := dev.UniqueIDAddress()
					if err != nil {
						return err
					}
					if err := dev.WriteBytes(addr, u[:flash.UniqueIDSize]); err != nil {
						return err
					}
					pkg.LogInfo(component, "identifier provisioned",
						"uuid", u.String(),
						"addr", pkg.Addr(addr))
				}

				id, err := dev.ReadUniqueID()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(id[:]))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&provision, "provision", false, "write a new random identifier first")
	return cmd
}
