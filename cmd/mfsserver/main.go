package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/philipwilsonchang/myfilesystem/disks"
	"github.com/philipwilsonchang/myfilesystem/fsys"
	"github.com/philipwilsonchang/myfilesystem/image"
	"github.com/philipwilsonchang/myfilesystem/server"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:      "mfsserver",
		Usage:     "Serve a miniature file system image over UDP",
		ArgsUsage: "PORT IMAGE_PATH",
		Action:    runServer,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func runServer(context *cli.Context) error {
	if context.NArg() != 2 {
		cli.ShowAppHelp(context)
		return cli.Exit("expected arguments: PORT IMAGE_PATH", 1)
	}

	port, err := strconv.Atoi(context.Args().Get(0))
	if err != nil || port < 0 || port > 65535 {
		return cli.Exit(
			fmt.Sprintf("port must be a 16-bit integer, got %q", context.Args().Get(0)), 1)
	}
	imagePath := context.Args().Get(1)

	geometry := disks.Default()
	img, created, err := image.Open(imagePath, geometry.TotalBytes)
	if err != nil {
		return fmt.Errorf("opening image %q: %w", imagePath, err)
	}
	defer img.Close()

	if created {
		log.Printf("image %q does not exist, initializing a blank one", imagePath)
		if err := fsys.Format(img, geometry); err != nil {
			return fmt.Errorf("initializing image %q: %w", imagePath, err)
		}
	}

	fs, err := fsys.Mount(img, geometry)
	if err != nil {
		return fmt.Errorf("mounting image %q: %w", imagePath, err)
	}

	srv, err := server.New(port, fs)
	if err != nil {
		return err
	}
	return srv.Serve()
}
