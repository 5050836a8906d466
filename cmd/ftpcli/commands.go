package main

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/halfduplex/ftp"
	"github.com/mitchellh/go-homedir"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed)
	dirColor  = color.New(color.FgBlue, color.Bold)
	linkColor = color.New(color.FgCyan)
)

// status prints colored result lines. Parallel downloads share one status,
// so writes are serialized.
type status struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

func (s *status) ok(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	okColor.Fprintf(s.out, format+"\n", args...)
}

func (s *status) failed(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	errColor.Fprintf(s.errOut, format+"\n", args...)
}

// withClient runs fn on a logged-in client and quits afterwards.
func withClient(fn func(c *ftp.Client) error) error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()
	return fn(c)
}

func requireArgs(ctx *cli.Context, n int) error {
	if ctx.NArg() < n {
		return errors.Errorf("%s: expected %d argument(s): %s", ctx.Command.Name, n, ctx.Command.ArgsUsage)
	}
	return nil
}

func pwdAction(ctx *cli.Context) error {
	return withClient(func(c *ftp.Client) error {
		dir, err := c.CurrentDir()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, dir)
		return nil
	})
}

func lsAction(ctx *cli.Context) error {
	return withClient(func(c *ftp.Client) error {
		entries, err := c.List(ctx.Args().First())
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(ctx.App.Writer, formatEntry(e))
		}
		return nil
	})
}

// formatEntry renders a listing entry as one line, coloring directories and
// links.
func formatEntry(e *ftp.Entry) string {
	name := e.Name
	switch {
	case e.IsDir():
		name = dirColor.Sprint(name)
	case e.IsLink():
		name = linkColor.Sprint(name) + " -> " + e.Target
	}
	return fmt.Sprintf("%s %12d %s %2d %5s %s", e.Permissions, e.Size, e.Month, e.Day, e.Time, name)
}

func getAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	outDir, err := homedir.Expand(ctx.String("output"))
	if err != nil {
		return errors.Wrap(err, "invalid output directory")
	}

	out := &status{out: ctx.App.Writer, errOut: ctx.App.ErrWriter}
	remotes := ctx.Args().Slice()
	parallel := ctx.Int("parallel")
	if parallel <= 1 || len(remotes) == 1 {
		for _, remote := range remotes {
			if err := download(out, remote, localTarget(outDir, remote), true); err != nil {
				return err
			}
		}
		return nil
	}
	return downloadAll(out, remotes, outDir, parallel)
}

// downloadAll fetches remotes concurrently. The control channel is
// half-duplex, so every task opens its own client.
func downloadAll(out *status, remotes []string, outDir string, parallel int) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)

	p, err := ants.NewPoolWithFunc(parallel, func(in interface{}) {
		defer wg.Done()
		remote := in.(string)
		if err := download(out, remote, localTarget(outDir, remote), false); err != nil {
			mu.Lock()
			failed = append(failed, remote)
			mu.Unlock()
		}
	})
	if err != nil {
		return errors.Wrap(err, "failed to create worker pool")
	}
	defer p.Release()

	var scheduleErr error
	for _, remote := range remotes {
		wg.Add(1)
		if err := p.Invoke(remote); err != nil {
			wg.Done()
			scheduleErr = errors.Wrapf(err, "failed to schedule %s", remote)
			break
		}
	}
	wg.Wait()

	if scheduleErr != nil {
		return scheduleErr
	}

	if len(failed) > 0 {
		return errors.Errorf("%d of %d downloads failed: %s", len(failed), len(remotes), strings.Join(failed, ", "))
	}
	return nil
}

// download fetches one file, with a progress bar when showBar is set, and
// prints a status line.
func download(out *status, remote, local string, showBar bool) error {
	err := withClient(func(c *ftp.Client) error {
		var progress ftp.ProgressFunc
		if showBar {
			progress = ftp.ReadProgress(newBarListener(path.Base(remote)))
		}
		return c.RetrieveTo(remote, local, progress)
	})
	if err != nil {
		out.failed("FAILED %s: %v", remote, err)
		return err
	}
	out.ok("OK %s -> %s", remote, local)
	return nil
}

func putAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	local, err := homedir.Expand(ctx.Args().Get(0))
	if err != nil {
		return errors.Wrap(err, "invalid local path")
	}
	remote := ctx.Args().Get(1)
	if remote == "" {
		remote = filepath.Base(local)
	}

	out := &status{out: ctx.App.Writer, errOut: ctx.App.ErrWriter}
	return withClient(func(c *ftp.Client) error {
		progress := ftp.WriteProgress(newBarListener(filepath.Base(local)))
		if err := c.StoreFrom(remote, local, progress); err != nil {
			return err
		}
		out.ok("OK %s -> %s", local, remote)
		return nil
	})
}

func mkdirAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	return withClient(func(c *ftp.Client) error {
		return c.MakeDir(ctx.Args().First())
	})
}

func rmdirAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	return withClient(func(c *ftp.Client) error {
		return c.RemoveDir(ctx.Args().First())
	})
}

func rmAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	return withClient(func(c *ftp.Client) error {
		return c.Delete(ctx.Args().First())
	})
}

func mvAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2); err != nil {
		return err
	}
	return withClient(func(c *ftp.Client) error {
		return c.Rename(ctx.Args().Get(0), ctx.Args().Get(1))
	})
}

// localTarget is where a remote file is written inside outDir.
func localTarget(outDir, remote string) string {
	return filepath.Join(outDir, path.Base(remote))
}
