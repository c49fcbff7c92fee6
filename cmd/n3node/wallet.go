package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/wallet"
)

var walletCommand = &cli.Command{
	Name:  "wallet",
	Usage: "manage NEP-6 wallets",
	Subcommands: []*cli.Command{
		walletInitCommand,
		walletCreateAccountCommand,
	},
}

var walletPathFlag = &cli.StringFlag{
	Name:     "wallet",
	Aliases:  []string{"w"},
	Usage:    "path to the NEP-6 wallet file",
	Required: true,
}

var walletInitCommand = &cli.Command{
	Name:  "init",
	Usage: "create an empty NEP-6 wallet",
	Flags: []cli.Flag{walletPathFlag},
	Action: func(c *cli.Context) error {
		path := c.String("wallet")
		if _, err := os.Stat(path); err == nil {
			return cli.Exit(fmt.Sprintf("n3node: %s already exists", path), 1)
		}
		w := &wallet.Wallet{Version: "1.0", Scrypt: wallet.DefaultScryptParams}
		if err := w.Save(path); err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Fprintf(c.App.Writer, "created empty wallet at %s\n", path)
		return nil
	},
}

var walletCreateAccountCommand = &cli.Command{
	Name:  "create",
	Usage: "generate a new account and add it to a wallet",
	Flags: []cli.Flag{
		walletPathFlag,
		&cli.StringFlag{Name: "label", Usage: "account label"},
		&cli.BoolFlag{Name: "default", Usage: "flag this account as the wallet default"},
	},
	Action: func(c *cli.Context) error {
		w, err := wallet.LoadFile(c.String("wallet"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		priv, err := keys.NewPrivateKey()
		if err != nil {
			return cli.Exit(err, 1)
		}
		passphrase, err := readPassphrase(c.App.Writer)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if err := w.AddAccount(priv, passphrase, c.String("label"), c.Bool("default")); err != nil {
			return cli.Exit(err, 1)
		}
		if err := w.Save(""); err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Fprintf(c.App.Writer, "created account %s\n", priv.PublicKey().Address())
		return nil
	},
}

func readPassphrase(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(out, "passphrase: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
