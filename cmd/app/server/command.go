package server

import "github.com/urfave/cli/v2"

func Command() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "start the HTTP server and the scheduled backup worker",
		Action: func(c *cli.Context) error {
			Run()
			return nil
		},
	}
}
