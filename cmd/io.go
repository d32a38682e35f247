package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"devtoolbox/cryptotool/codec"
	"devtoolbox/cryptotool/controller"
	"devtoolbox/cryptotool/engine"
	"devtoolbox/cryptotool/keys"

	"github.com/urfave/cli/v2"
)

const inputFlag = "input"

var inputCliFlag = &cli.StringFlag{
	Name:    inputFlag,
	Aliases: []string{"i"},
	Usage:   "input text; read from stdin when absent",
}

// readInput returns --input or stdin with one trailing newline removed.
func readInput(c *cli.Context) (string, error) {
	if c.IsSet(inputFlag) {
		return c.String(inputFlag), nil
	}

	data, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}

func writeLine(c *cli.Context, s string) error {
	_, err := fmt.Fprintln(c.App.Writer, s)
	return err
}

// readKeyFile imports an RSA key from a PEM or Base64 file.
func readKeyFile(manager *keys.Manager, path string, kind keys.Kind, role keys.Role) (*keys.Material, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	rep := keys.Base64
	if codec.IsPem(string(data)) {
		rep = keys.PEM
	} else {
		data = []byte(strings.TrimSpace(string(data)))
	}

	key, err := manager.ImportKey(data, rep, kind, role)
	if err != nil {
		return nil, engine.AsError(err)
	}
	return key, nil
}

// result renders a successful engine result for display. Decrypt output
// is text, verify output is valid/invalid and everything else is Base64.
func result(op engine.Operation, res *engine.Result) (string, error) {
	if res.Failed() {
		return "", res.Err
	}

	switch {
	case res.Outcome == engine.Verified && res.Valid:
		return controller.VerifyValid, nil
	case res.Outcome == engine.Verified:
		return controller.VerifyInvalid, nil
	case op == engine.Decrypt:
		return string(res.Data), nil
	default:
		return codec.EncodeBase64(res.Data, codec.Standard), nil
	}
}

// decodePayload decodes Base64 input for decrypt and passes text through
// for every other operation.
func decodePayload(op engine.Operation, input string) ([]byte, error) {
	if op != engine.Decrypt {
		return []byte(input), nil
	}

	payload, err := codec.DecodeBase64(strings.TrimSpace(input), codec.Standard)
	if err != nil {
		return nil, engine.AsError(err)
	}
	return payload, nil
}
