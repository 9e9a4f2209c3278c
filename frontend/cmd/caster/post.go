package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/caster/frontend/internal/composer"
	"github.com/itchan-dev/caster/frontend/internal/notify"
	"github.com/itchan-dev/caster/frontend/internal/setup"
	"github.com/itchan-dev/caster/shared/domain"
)

type postOptions struct {
	text       string
	images     []string
	replyTo    string
	replyFid   uint64
	parentURL  string
	waitEmbeds bool
	ignore     []string
	fid        uint64
	token      string
	timeout    time.Duration
}

func newPostCmd(root *rootOptions) *cobra.Command {
	opts := &postOptions{}
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Compose a cast and submit it to the hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd.Context(), cmd.OutOrStdout(), root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.text, "text", "", "cast text")
	f.StringArrayVar(&opts.images, "image", nil, "image to attach, repeatable (up to 4)")
	f.StringVar(&opts.replyTo, "reply-to", "", "hash of the cast to reply to")
	f.Uint64Var(&opts.replyFid, "reply-fid", 0, "fid of the author of the cast to reply to")
	f.StringVar(&opts.parentURL, "parent-url", "", "channel URL to post into")
	f.BoolVar(&opts.waitEmbeds, "wait-embeds", true, "resolve link previews before submitting")
	f.StringArrayVar(&opts.ignore, "ignore", nil, "link to keep out of the embeds, repeatable")
	f.Uint64Var(&opts.fid, "fid", 0, "author fid when no session token is given")
	f.StringVar(&opts.token, "token", os.Getenv("CASTER_SESSION"), "session token carrying the author identity")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline")
	return cmd
}

func runPost(ctx context.Context, out io.Writer, root *rootOptions, opts *postOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	notes := &notify.Recorder{}
	deps, err := setup.SetupDependencies(cfg, notes)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	identity, err := deps.Identity(opts.token, domain.Identity{Fid: opts.fid})
	if err != nil {
		return err
	}

	composerOpts := composer.Options{ParentURL: opts.parentURL}
	if opts.replyTo != "" {
		composerOpts.Reply = true
		composerOpts.Parent = &domain.ParentRef{Hash: opts.replyTo, Fid: opts.replyFid}
	}
	c := deps.NewComposer(identity, composerOpts)
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	files, err := readImages(opts.images)
	if err != nil {
		return err
	}
	if err := c.OnFilesSelected(files); err != nil {
		return fmt.Errorf("attachments rejected: %w", err)
	}

	c.OnTextChange(opts.text)
	if opts.waitEmbeds {
		if err := c.WaitEmbeds(ctx); err != nil {
			return err
		}
		for _, u := range opts.ignore {
			c.OnIgnoreEmbed(u)
		}
		if err := c.WaitEmbeds(ctx); err != nil {
			return err
		}
	}

	view := c.Snapshot()
	fmt.Fprintf(out, "%d/%d characters, %d attachment(s)\n", view.Validity.Length, view.Validity.Limit, len(view.Draft.Attachments))
	for _, e := range view.Draft.Embeds {
		fmt.Fprintf(out, "embed: %s", e.URL)
		if e.Title != "" {
			fmt.Fprintf(out, " (%s)", e.Title)
		}
		fmt.Fprintln(out)
	}

	res, err := c.OnSubmit(ctx)
	for _, n := range notes.All() {
		printNotification(out, n)
	}
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		return fmt.Errorf("%s: %w", res.Failure, res.Err)
	}
	return nil
}

func readImages(paths []string) ([]domain.File, error) {
	files := make([]domain.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		files = append(files, domain.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

func printNotification(out io.Writer, n notify.Notification) {
	line := fmt.Sprintf("[%s] %s", n.Level, n.Message)
	if n.Link != "" {
		line += " " + n.Link
	}
	fmt.Fprintln(out, line)
}

var errNoURLs = errors.New("at least one URL is required")

func splitURLs(args []string) []string {
	var urls []string
	for _, a := range args {
		for _, u := range strings.Split(a, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls
}
