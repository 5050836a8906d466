package main

import (
	"log"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/halfduplex/ftp"
	"github.com/urfave/cli/v2"
)

var (
	host          string
	port          int
	user          string
	password      string
	timeout       time.Duration
	maxReconnects int
	limit         int64
	debug         bool
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "ftpcli",
		Usage:   "use like: ftpcli --host=ftp.example.com --user=alice get /pub/file.iso",
		Version: "v0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "host",
				Usage:       "FTP server host name or address",
				Value:       "localhost",
				EnvVars:     []string{"FTP_HOST"},
				Destination: &host,
			},
			&cli.IntFlag{
				Name:        "port",
				Usage:       "FTP control port",
				Value:       ftp.DefaultPort,
				EnvVars:     []string{"FTP_PORT"},
				Destination: &port,
			},
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "login name",
				Value:       ftp.Anonymous,
				EnvVars:     []string{"FTP_USER"},
				Destination: &user,
			},
			&cli.StringFlag{
				Name:        "password",
				Aliases:     []string{"p"},
				Usage:       "login password",
				Value:       "anonymous@",
				EnvVars:     []string{"FTP_PASSWORD"},
				Destination: &password,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "socket timeout, 0 to wait forever",
				Value:       30 * time.Second,
				Destination: &timeout,
			},
			&cli.IntFlag{
				Name:        "max-reconnects",
				Usage:       "reconnect attempts per command after the server drops the session",
				Value:       3,
				Destination: &maxReconnects,
			},
			&cli.Int64Flag{
				Name:        "limit",
				Usage:       "bandwidth limit in bytes per second, 0 for unlimited",
				Destination: &limit,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "log the FTP conversation to stderr",
				Destination: &debug,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "pwd",
				Usage:  "print the remote working directory",
				Action: pwdAction,
			},
			{
				Name:      "ls",
				Usage:     "list a remote directory",
				ArgsUsage: "[path]",
				Action:    lsAction,
			},
			{
				Name:      "get",
				Usage:     "download remote files",
				ArgsUsage: "remote [remote...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "local directory to write into",
						Value:   ".",
					},
					&cli.IntFlag{
						Name:  "parallel",
						Usage: "number of files downloaded at once, each over its own connection",
						Value: 1,
					},
				},
				Action: getAction,
			},
			{
				Name:      "put",
				Usage:     "upload a local file",
				ArgsUsage: "local [remote]",
				Action:    putAction,
			},
			{
				Name:      "mkdir",
				Usage:     "create a remote directory",
				ArgsUsage: "path",
				Action:    mkdirAction,
			},
			{
				Name:      "rmdir",
				Usage:     "remove an empty remote directory",
				ArgsUsage: "path",
				Action:    rmdirAction,
			},
			{
				Name:      "rm",
				Usage:     "delete a remote file",
				ArgsUsage: "path",
				Action:    rmAction,
			},
			{
				Name:      "mv",
				Usage:     "rename a remote file or directory",
				ArgsUsage: "from to",
				Action:    mvAction,
			},
		},
	}
}

func newLogger() *slog.Logger {
	if !debug {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// dial connects and logs in using the global flags.
func dial() (*ftp.Client, error) {
	c, err := ftp.Dial(net.JoinHostPort(host, strconv.Itoa(port)),
		ftp.WithTimeout(timeout),
		ftp.WithMaxReconnects(maxReconnects),
		ftp.WithBandwidthLimit(limit),
		ftp.WithLogger(newLogger()),
	)
	if err != nil {
		return nil, err
	}
	if err := c.Login(user, password); err != nil {
		_ = c.Quit()
		return nil, err
	}
	return c, nil
}
