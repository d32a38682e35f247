package main

import (
	"strings"

	"devtoolbox/cryptotool/codec"
	"devtoolbox/cryptotool/engine"

	"github.com/urfave/cli/v2"
)

func base64Command() *cli.Command {
	variantFlag := &cli.StringFlag{
		Name:  "variant",
		Usage: "standard, url-safe, no-padding or url-safe-no-padding",
		Value: codec.Standard.String(),
	}

	return &cli.Command{
		Name:  "base64",
		Usage: "Base64 encoding",
		Subcommands: []*cli.Command{
			{
				Name:  "encode",
				Usage: "encode text",
				Flags: []cli.Flag{variantFlag, inputCliFlag},
				Action: func(c *cli.Context) error {
					variant, err := codec.ParseBase64Variant(c.String("variant"))
					if err != nil {
						return err
					}
					input, err := readInput(c)
					if err != nil {
						return err
					}
					return writeLine(c, codec.EncodeBase64([]byte(input), variant))
				},
			},
			{
				Name:  "decode",
				Usage: "decode to text",
				Flags: []cli.Flag{variantFlag, inputCliFlag},
				Action: func(c *cli.Context) error {
					variant, err := codec.ParseBase64Variant(c.String("variant"))
					if err != nil {
						return err
					}
					input, err := readInput(c)
					if err != nil {
						return err
					}
					data, err := codec.DecodeBase64(strings.TrimSpace(input), variant)
					if err != nil {
						return engine.AsError(err)
					}
					return writeLine(c, string(data))
				},
			},
		},
	}
}

func pemCommand() *cli.Command {
	return &cli.Command{
		Name:  "pem",
		Usage: "PEM armoring of Base64 DER",
		Subcommands: []*cli.Command{
			{
				Name:  "encode",
				Usage: "wrap Base64 DER in a PEM block",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "label", Usage: "PEM label", Value: codec.PublicKeyLabel},
					inputCliFlag,
				},
				Action: func(c *cli.Context) error {
					input, err := readInput(c)
					if err != nil {
						return err
					}
					der, err := codec.DecodeBase64(strings.TrimSpace(input), codec.Standard)
					if err != nil {
						return engine.AsError(err)
					}
					return writeLine(c, codec.EncodePem(der, c.String("label")))
				},
			},
			{
				Name:  "decode",
				Usage: "unwrap a PEM block to Base64 DER",
				Flags: []cli.Flag{inputCliFlag},
				Action: func(c *cli.Context) error {
					input, err := readInput(c)
					if err != nil {
						return err
					}
					der, err := codec.DecodePem(input)
					if err != nil {
						return engine.AsError(err)
					}
					return writeLine(c, codec.EncodeBase64(der, codec.Standard))
				},
			},
		},
	}
}
