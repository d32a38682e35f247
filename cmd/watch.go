package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"devtoolbox/cryptotool/codec"
	"devtoolbox/cryptotool/controller"
	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/engine"
	"devtoolbox/cryptotool/keys"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	settleTimeout = 30 * time.Second
	settlePoll    = 10 * time.Millisecond
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "interactive session: each input line re-runs the current operation after the debounce window",
		Description: "Lines starting with ':' are commands: :swap, :clear, :gen-key, :gen-iv, " +
			":enter encrypt-decrypt|sign-verify, :mode GCM|CBC, :signature B64, :wait, :quit. Any other line replaces the input.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "algorithm", Usage: "aes or rsa", Value: "aes"},
			&cli.StringFlag{Name: "pair", Usage: "encrypt-decrypt or sign-verify", Value: pairEncryptDecrypt},
			&cli.StringFlag{Name: "mode", Usage: "GCM or CBC; defaults to aes.mode"},
			&cli.StringFlag{Name: "key", Usage: "Base64 AES key"},
			&cli.StringFlag{Name: "iv", Usage: "Base64 nonce"},
			&cli.StringFlag{Name: "public-key", Usage: "RSA public key file"},
			&cli.StringFlag{Name: "private-key", Usage: "RSA private key file"},
		},
		Action: watch,
	}
}

const (
	pairEncryptDecrypt = "encrypt-decrypt"
	pairSignVerify     = "sign-verify"
)

func parsePair(s string) (controller.Pair, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case pairEncryptDecrypt:
		return controller.EncryptDecrypt, nil
	case pairSignVerify:
		return controller.SignVerify, nil
	default:
		return controller.EncryptDecrypt, fmt.Errorf("unknown operation pair %q", s)
	}
}

// printer writes controller changes, skipping repeats.
type printer struct {
	c    *cli.Context
	mu   sync.Mutex
	last string
}

func (p *printer) onChange(s controller.Snapshot) {
	var line string
	switch {
	case s.Err != nil:
		line = "! " + s.Err.Error()
	case s.Output != "":
		line = fmt.Sprintf("%s> %s", s.Operation, s.Output)
	default:
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	_ = writeLine(p.c, line)
}

func (p *printer) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = line
	_ = writeLine(p.c, line)
}

func watch(c *cli.Context) error {
	return withEnvironment(c, func(env *environment) error {
		algorithm, err := engine.ParseAlgorithm(c.String("algorithm"))
		if err != nil {
			return err
		}
		pair, err := parsePair(c.String("pair"))
		if err != nil {
			return err
		}

		out := &printer{c: c}
		ctrl, err := env.controllers.New(pair, algorithm, out.onChange)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		if err := installFlagKeys(c, env, ctrl); err != nil {
			return err
		}

		scanner := bufio.NewScanner(c.App.Reader)
		for scanner.Scan() {
			line := strings.TrimSuffix(scanner.Text(), "\r")

			if !strings.HasPrefix(line, ":") {
				ctrl.SetInput(line)
				continue
			}

			quit, err := runWatchCommand(c.Context, ctrl, line)
			if err != nil {
				out.println("! " + err.Error())
				env.logger.Debug("watch command failed", zap.String("command", line), zap.Error(err))
			}
			if quit {
				return nil
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		return settle(c.Context, ctrl)
	})
}

func runWatchCommand(ctx context.Context, ctrl *controller.Controller, line string) (bool, error) {
	command, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")

	switch command {
	case "quit", "q":
		return true, nil
	case "swap":
		ctrl.Swap()
	case "clear":
		ctrl.Clear()
	case "gen-key":
		return false, ctrl.GenerateKey(ctx)
	case "gen-iv":
		return false, ctrl.GenerateNonce(ctx)
	case "wait":
		return false, settle(ctx, ctrl)
	case "enter":
		pair, err := parsePair(arg)
		if err != nil {
			return false, err
		}
		ctrl.Enter(pair)
	case "mode":
		mode, err := crypto.ParseMode(arg)
		if err != nil {
			return false, err
		}
		ctrl.SetMode(mode)
	case "signature":
		signature, err := codec.DecodeBase64(strings.TrimSpace(arg), codec.Standard)
		if err != nil {
			return false, engine.AsError(err)
		}
		ctrl.SetSignature(signature)
	default:
		return false, fmt.Errorf("unknown command :%s", command)
	}
	return false, nil
}

func installFlagKeys(c *cli.Context, env *environment, ctrl *controller.Controller) error {
	if c.IsSet("mode") {
		mode, err := crypto.ParseMode(c.String("mode"))
		if err != nil {
			return err
		}
		ctrl.SetMode(mode)
	}

	manager := env.engine.Keys()

	if c.IsSet("key") {
		key, err := manager.ImportKey([]byte(c.String("key")), keys.Base64, keys.Secret, keys.EncryptDecrypt)
		if err != nil {
			return engine.AsError(err)
		}
		ctrl.SetKey(key)
	}

	if c.IsSet("iv") {
		iv, err := codec.DecodeBase64(c.String("iv"), codec.Standard)
		if err != nil {
			return engine.AsError(err)
		}
		ctrl.SetIV(iv)
	}

	role := keys.EncryptDecrypt
	if ctrl.Snapshot().Pair == controller.SignVerify {
		role = keys.SignVerify
	}

	for flag, kind := range map[string]keys.Kind{"public-key": keys.Public, "private-key": keys.Private} {
		if !c.IsSet(flag) {
			continue
		}
		key, err := readKeyFile(manager, c.String(flag), kind, role)
		if err != nil {
			return err
		}
		ctrl.SetKey(key)
	}

	return nil
}

// settle waits for the last scheduled conversion to be applied.
func settle(ctx context.Context, ctrl *controller.Controller) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()

	for ctrl.Pending() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("conversion did not finish: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
