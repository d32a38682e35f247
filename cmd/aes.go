package main

import (
	"devtoolbox/cryptotool/codec"
	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/engine"
	"devtoolbox/cryptotool/keys"

	"github.com/urfave/cli/v2"
)

func aesCommand() *cli.Command {
	modeFlag := &cli.StringFlag{
		Name:  "mode",
		Usage: "GCM or CBC; defaults to aes.mode",
	}
	keyFlag := &cli.StringFlag{
		Name:     "key",
		Usage:    "Base64 AES key",
		Required: true,
	}
	ivFlag := &cli.StringFlag{
		Name:     "iv",
		Usage:    "Base64 nonce (12 bytes for GCM, 16 for CBC)",
		Required: true,
	}

	return &cli.Command{
		Name:  "aes",
		Usage: "AES-GCM and AES-CBC operations",
		Subcommands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "generate or derive an AES key",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Usage: "key size in bits; defaults to aes.key_size"},
					&cli.StringFlag{Name: "passphrase", Usage: "derive the key from a passphrase with HKDF-SHA-256"},
					&cli.StringFlag{Name: "salt", Usage: "salt for passphrase derivation"},
				},
				Action: aesKeygen,
			},
			{
				Name:   "nonce",
				Usage:  "generate a nonce for the mode",
				Flags:  []cli.Flag{modeFlag},
				Action: aesNonce,
			},
			{
				Name:   "encrypt",
				Usage:  "encrypt text, print Base64 ciphertext",
				Flags:  []cli.Flag{keyFlag, ivFlag, modeFlag, inputCliFlag},
				Action: aesTransform(engine.Encrypt),
			},
			{
				Name:   "decrypt",
				Usage:  "decrypt Base64 ciphertext, print text",
				Flags:  []cli.Flag{keyFlag, ivFlag, modeFlag, inputCliFlag},
				Action: aesTransform(engine.Decrypt),
			},
		},
	}
}

func aesKeygen(c *cli.Context) error {
	return withEnvironment(c, func(env *environment) error {
		bits := env.config.AES.KeySize
		if c.IsSet("size") {
			bits = c.Int("size")
		}

		var (
			key *keys.Material
			err error
		)
		if passphrase := c.String("passphrase"); passphrase != "" {
			key, err = env.engine.Keys().DeriveSymmetricKey([]byte(passphrase), []byte(c.String("salt")), bits)
		} else {
			key, err = env.engine.GenerateKey(c.Context, bits)
		}
		if err != nil {
			return err
		}

		return writeLine(c, key.Export())
	})
}

func aesNonce(c *cli.Context) error {
	return withEnvironment(c, func(env *environment) error {
		mode, err := resolveMode(c, env)
		if err != nil {
			return err
		}

		nonce, err := env.engine.GenerateNonce(c.Context, mode)
		if err != nil {
			return err
		}

		return writeLine(c, codec.EncodeBase64(nonce, codec.Standard))
	})
}

func aesTransform(op engine.Operation) cli.ActionFunc {
	return func(c *cli.Context) error {
		return withEnvironment(c, func(env *environment) error {
			mode, err := resolveMode(c, env)
			if err != nil {
				return err
			}

			key, err := env.engine.Keys().ImportKey([]byte(c.String("key")), keys.Base64, keys.Secret, keys.EncryptDecrypt)
			if err != nil {
				return engine.AsError(err)
			}

			iv, err := codec.DecodeBase64(c.String("iv"), codec.Standard)
			if err != nil {
				return engine.AsError(err)
			}

			input, err := readInput(c)
			if err != nil {
				return err
			}

			payload, err := decodePayload(op, input)
			if err != nil {
				return err
			}

			out, err := result(op, env.engine.Convert(c.Context, &engine.Request{
				Operation: op,
				Algorithm: engine.AES,
				Mode:      mode,
				Payload:   payload,
				Key:       key,
				IV:        iv,
			}))
			if err != nil {
				return err
			}

			return writeLine(c, out)
		})
	}
}

func resolveMode(c *cli.Context, env *environment) (crypto.Mode, error) {
	if c.IsSet("mode") {
		return crypto.ParseMode(c.String("mode"))
	}
	return crypto.ParseMode(env.config.AES.Mode)
}
