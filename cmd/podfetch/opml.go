package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/akeil/podfetch/pkg/opml"
	"github.com/akeil/podfetch/pkg/update"
)

type exportCommand struct {
	Output string `long:"output" short:"o" description:"write to this file instead of stdout"`
}

func (c *exportCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	out, done, err := fileOrStdout(c.Output)
	if err != nil {
		return errors.Wrap(err, "failed to open output file")
	}
	defer done()

	return opml.Export(ctx, app.storage, out)
}

type importCommand struct {
	Args struct {
		Path string `positional-arg-name:"FILE" required:"yes" description:"OPML file to import"`
	} `positional-args:"yes" required:"yes"`
}

func (c *importCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	f, err := os.Open(c.Args.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open OPML file")
	}
	defer f.Close()

	feeds, err := opml.Parse(f)
	if err != nil {
		return err
	}

	for _, entry := range feeds {
		sub, err := app.manager.Add(ctx, update.AddOptions{
			URL:  entry.URL,
			Name: entry.Title,
		})
		if err != nil {
			log.WithError(err).Warnf("skipping %q", entry.URL)
			continue
		}

		fmt.Printf("added %q (%s)\n", sub.Name, sub.URL)
	}

	return nil
}
