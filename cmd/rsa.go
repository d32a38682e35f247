package main

import (
	"fmt"
	"os"
	"path/filepath"

	"devtoolbox/cryptotool/codec"
	"devtoolbox/cryptotool/engine"
	"devtoolbox/cryptotool/keys"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	publicKeyFile  = "public.pem"
	privateKeyFile = "private.pem"
)

func rsaCommand() *cli.Command {
	publicKeyFlag := &cli.StringFlag{
		Name:     "public-key",
		Usage:    "PEM or Base64 SPKI public key file",
		Required: true,
	}
	privateKeyFlag := &cli.StringFlag{
		Name:     "private-key",
		Usage:    "PEM or Base64 PKCS#8 private key file",
		Required: true,
	}

	return &cli.Command{
		Name:  "rsa",
		Usage: "RSA-OAEP and RSA-PSS operations (SHA-256)",
		Subcommands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "generate an RSA key pair",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Usage: "modulus size in bits; defaults to rsa.key_size"},
					&cli.StringFlag{Name: "out", Usage: "directory for public.pem and private.pem; prints both when absent"},
				},
				Action: rsaKeygen,
			},
			{
				Name:   "encrypt",
				Usage:  "encrypt text with RSA-OAEP, print Base64 ciphertext",
				Flags:  []cli.Flag{publicKeyFlag, inputCliFlag},
				Action: rsaTransform(engine.Encrypt),
			},
			{
				Name:   "decrypt",
				Usage:  "decrypt Base64 RSA-OAEP ciphertext, print text",
				Flags:  []cli.Flag{privateKeyFlag, inputCliFlag},
				Action: rsaTransform(engine.Decrypt),
			},
			{
				Name:   "sign",
				Usage:  "sign text with RSA-PSS, print Base64 signature",
				Flags:  []cli.Flag{privateKeyFlag, inputCliFlag},
				Action: rsaTransform(engine.Sign),
			},
			{
				Name:  "verify",
				Usage: "verify an RSA-PSS signature over text",
				Flags: []cli.Flag{
					publicKeyFlag,
					&cli.StringFlag{Name: "signature", Usage: "Base64 signature", Required: true},
					inputCliFlag,
				},
				Action: rsaTransform(engine.Verify),
			},
		},
	}
}

func rsaKeygen(c *cli.Context) error {
	return withEnvironment(c, func(env *environment) error {
		bits := env.config.RSA.KeySize
		if c.IsSet("size") {
			bits = c.Int("size")
		}

		pair, err := env.engine.GenerateKeyPair(c.Context, bits, keys.EncryptDecrypt)
		if err != nil {
			return err
		}

		dir := c.String("out")
		if dir == "" {
			if err := writeLine(c, pair.PublicPEM); err != nil {
				return err
			}
			return writeLine(c, pair.PrivatePEM)
		}

		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, publicKeyFile), []byte(pair.PublicPEM+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write public key: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, privateKeyFile), []byte(pair.PrivatePEM+"\n"), 0o600); err != nil {
			return fmt.Errorf("failed to write private key: %w", err)
		}

		env.logger.Info("wrote key pair", zap.String("dir", dir), zap.Int("bits", bits))
		return nil
	})
}

func rsaTransform(op engine.Operation) cli.ActionFunc {
	return func(c *cli.Context) error {
		return withEnvironment(c, func(env *environment) error {
			kind, path := keys.Public, c.String("public-key")
			if op == engine.Decrypt || op == engine.Sign {
				kind, path = keys.Private, c.String("private-key")
			}

			role := keys.EncryptDecrypt
			if op == engine.Sign || op == engine.Verify {
				role = keys.SignVerify
			}

			key, err := readKeyFile(env.engine.Keys(), path, kind, role)
			if err != nil {
				return err
			}

			var signature []byte
			if op == engine.Verify {
				signature, err = codec.DecodeBase64(c.String("signature"), codec.Standard)
				if err != nil {
					return engine.AsError(err)
				}
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
				Algorithm: engine.RSA,
				Payload:   payload,
				Key:       key,
				Signature: signature,
			}))
			if err != nil {
				return err
			}

			return writeLine(c, out)
		})
	}
}
