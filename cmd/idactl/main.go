// Package main (cmd/idactl) is a command line client for the blob API of idaserver.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ruteri/ida-persistence-engine/api/clients"
	"github.com/urfave/cli/v2"
)

var flagServerAddr = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	EnvVars: []string{"IDA_SERVER_ADDR"},
	Usage:   "idaserver address to request",
}
var flagTimeout = &cli.DurationFlag{
	Name:  "timeout",
	Usage: "request timeout (defaults to 30s)",
}
var flagInput = &cli.StringFlag{
	Name:    "in",
	Aliases: []string{"i"},
	Usage:   "file to upload, standard input if not set",
}
var flagOutput = &cli.StringFlag{
	Name:    "out",
	Aliases: []string{"o"},
	Usage:   "file to write the blob to, standard output if not set",
}

func newClient(cCtx *cli.Context) *clients.BlobClient {
	return clients.NewBlobClient(cCtx.String(flagServerAddr.Name), cCtx.Duration(flagTimeout.Name))
}

func dataIDArg(cCtx *cli.Context) (string, error) {
	if cCtx.NArg() != 1 {
		return "", errors.New("expected exactly one data id argument")
	}
	return cCtx.Args().First(), nil
}

func readInput(cCtx *cli.Context) ([]byte, error) {
	if path := cCtx.String(flagInput.Name); path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	app := &cli.App{
		Name:  "idactl",
		Usage: "Store, fetch and delete blobs on an idaserver",
		Flags: []cli.Flag{
			flagServerAddr,
			flagTimeout,
		},
		Commands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "store a blob, under a generated id when none is given",
				ArgsUsage: "[data-id]",
				Flags:     []cli.Flag{flagInput},
				Action: func(cCtx *cli.Context) error {
					data, err := readInput(cCtx)
					if err != nil {
						return fmt.Errorf("could not read input: %w", err)
					}

					client := newClient(cCtx)
					if cCtx.NArg() == 0 {
						id, err := client.Create(context.Background(), data)
						if err != nil {
							return err
						}
						fmt.Println(id)
						return nil
					}

					dataID, err := dataIDArg(cCtx)
					if err != nil {
						return err
					}
					return client.Save(context.Background(), dataID, data)
				},
			},
			{
				Name:      "get",
				Usage:     "fetch a blob",
				ArgsUsage: "<data-id>",
				Flags:     []cli.Flag{flagOutput},
				Action: func(cCtx *cli.Context) error {
					dataID, err := dataIDArg(cCtx)
					if err != nil {
						return err
					}
					data, err := newClient(cCtx).Load(context.Background(), dataID)
					if err != nil {
						return err
					}

					if path := cCtx.String(flagOutput.Name); path != "" {
						return os.WriteFile(path, data, 0600)
					}
					_, err = os.Stdout.Write(data)
					return err
				},
			},
			{
				Name:      "delete",
				Usage:     "delete every fragment of a blob",
				ArgsUsage: "<data-id>",
				Action: func(cCtx *cli.Context) error {
					dataID, err := dataIDArg(cCtx)
					if err != nil {
						return err
					}
					deleted, err := newClient(cCtx).Delete(context.Background(), dataID)
					if err != nil {
						return err
					}
					return printJSON(map[string]int{"deleted": deleted})
				},
			},
			{
				Name:      "fragments",
				Usage:     "list the repositories holding the fragments of a blob",
				ArgsUsage: "<data-id>",
				Action: func(cCtx *cli.Context) error {
					dataID, err := dataIDArg(cCtx)
					if err != nil {
						return err
					}
					placements, err := newClient(cCtx).Fragments(context.Background(), dataID)
					if err != nil {
						return err
					}
					return printJSON(placements)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
