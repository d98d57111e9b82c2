package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/akeil/podfetch/pkg/download"
	"github.com/akeil/podfetch/pkg/model"
	"github.com/akeil/podfetch/pkg/update"
)

type updateCommand struct {
	Force bool `long:"force" description:"ignore cached ETag/Last-Modified and re-evaluate all entries"`
	Args  struct {
		Names []string `positional-arg-name:"NAME" description:"subscriptions to update (default: all)"`
	} `positional-args:"yes"`
}

func (c *updateCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	reports, err := app.manager.Update(ctx, update.Options{
		Names: c.Args.Names,
		Force: c.Force,
	})
	if err != nil {
		return err
	}

	for _, report := range reports {
		printReport(report)
	}

	return nil
}

func printReport(report *update.Report) {
	switch report.Status {
	case update.StatusUpdated:
		fmt.Printf("%s: %s\n", report.Name, report.Downloads)
		for _, outcome := range report.Downloads.Outcomes {
			switch outcome.Status {
			case download.StatusDownloaded:
				for _, file := range outcome.Files {
					fmt.Printf("  + %s\n", file)
				}
			case download.StatusFailed:
				fmt.Printf("  ! %s: %s\n", outcome.Title, outcome.Reason)
			}
		}
		for _, episode := range report.Purged {
			fmt.Printf("  - purged %s\n", episode.Title)
		}
	case update.StatusFailed:
		fmt.Printf("%s: failed (%s)\n", report.Name, report.Reason)
	default:
		fmt.Printf("%s: %s\n", report.Name, report.Status)
	}
}

type addCommand struct {
	Name        string `long:"name" short:"n" description:"subscription name (default: derived from the URL)"`
	ContentDir  string `long:"dir" short:"d" description:"download directory for this subscription"`
	MaxEpisodes int    `long:"max-episodes" short:"m" description:"number of episodes to keep, 0 = unlimited"`
	Template    string `long:"template" short:"t" description:"episode filename template"`
	Args        struct {
		URL string `positional-arg-name:"URL" required:"yes" description:"feed URL"`
	} `positional-args:"yes" required:"yes"`
}

func (c *addCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	sub, err := app.manager.Add(ctx, update.AddOptions{
		URL:              c.Args.URL,
		Name:             c.Name,
		ContentDir:       c.ContentDir,
		MaxEpisodes:      c.MaxEpisodes,
		FilenameTemplate: c.Template,
	})
	if err != nil {
		return err
	}

	fmt.Printf("added %q (%s)\n", sub.Name, sub.URL)
	return nil
}

type lsCommand struct{}

func (c *lsCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.storage.WalkSubscriptions(ctx, func(sub *model.Subscription) error {
		state := ""
		if !sub.Enabled {
			state = " (disabled)"
		}
		fmt.Printf("%s%s\n    %s\n", sub.Name, state, sub.URL)
		return nil
	})
}

type showCommand struct {
	Args struct {
		Name string `positional-arg-name:"NAME" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *showCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	sub, err := app.storage.GetSubscription(ctx, c.Args.Name)
	if err != nil {
		return err
	}

	template := sub.FilenameTemplate
	if template == "" {
		template = fmt.Sprintf("[default] %s", app.cfg.FilenameTemplate)
	}

	fmt.Printf("%s\n", sub.Name)
	fmt.Printf("  url:          %s\n", sub.URL)
	fmt.Printf("  title:        %s\n", sub.Title)
	fmt.Printf("  enabled:      %t\n", sub.Enabled)
	fmt.Printf("  content dir:  %s\n", sub.ContentDir)
	fmt.Printf("  max episodes: %d\n", sub.MaxEpisodes)
	fmt.Printf("  template:     %s\n", template)
	fmt.Println("  episodes:")

	return app.storage.WalkEpisodes(ctx, sub.Name, func(episode *model.Episode) error {
		read := " "
		if episode.Read {
			read = "r"
		}
		fmt.Printf("    [%s] %s  %s (%s)\n", read, episode.PubDate.Format("2006-01-02"), episode.Title, episode.ID)
		return nil
	})
}

type removeCommand struct {
	KeepFiles bool `long:"keep-files" description:"do not delete downloaded episodes"`
	Args      struct {
		Name string `positional-arg-name:"NAME" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *removeCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.manager.Remove(ctx, c.Args.Name, !c.KeepFiles); err != nil {
		return err
	}

	fmt.Printf("removed %q\n", c.Args.Name)
	return nil
}

type editCommand struct {
	URL         *string `long:"url" description:"change the feed URL"`
	Title       *string `long:"title" description:"change the display title"`
	Enable      bool    `long:"enable" description:"enable the subscription"`
	Disable     bool    `long:"disable" description:"disable the subscription"`
	MaxEpisodes *int    `long:"max-episodes" short:"m" description:"number of episodes to keep, 0 = unlimited"`
	Template    *string `long:"template" short:"t" description:"episode filename template"`
	ContentDir  *string `long:"dir" short:"d" description:"download directory"`
	Args        struct {
		Name string `positional-arg-name:"NAME" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *editCommand) Execute([]string) error {
	if c.Enable && c.Disable {
		return fmt.Errorf("--enable and --disable are mutually exclusive")
	}

	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	changes := update.Changes{
		URL:              c.URL,
		Title:            c.Title,
		MaxEpisodes:      c.MaxEpisodes,
		FilenameTemplate: c.Template,
		ContentDir:       c.ContentDir,
	}
	if c.Enable || c.Disable {
		enabled := c.Enable
		changes.Enabled = &enabled
	}

	return app.manager.Edit(ctx, c.Args.Name, changes)
}

type markCommand struct {
	Unread bool `long:"unread" description:"mark as unread instead of read"`
	Args   struct {
		Name    string `positional-arg-name:"NAME" required:"yes"`
		Episode string `positional-arg-name:"EPISODE" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *markCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.manager.MarkRead(c.Args.Name, c.Args.Episode, !c.Unread)
}

type purgeCommand struct {
	Simulate bool `long:"simulate" short:"s" description:"report what would be deleted without deleting"`
	Args     struct {
		Names []string `positional-arg-name:"NAME" description:"subscriptions to purge (default: all)"`
	} `positional-args:"yes"`
}

func (c *purgeCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	removed := make(map[string][]*model.Episode)

	if len(c.Args.Names) == 0 {
		removed, err = app.manager.PurgeAll(ctx, c.Simulate)
		if err != nil {
			log.WithError(err).Error("purge finished with errors")
		}
	} else {
		for _, name := range c.Args.Names {
			sub, err := app.storage.GetSubscription(ctx, name)
			if err != nil {
				return err
			}

			episodes, err := app.manager.Purge(ctx, sub, c.Simulate)
			if err != nil {
				log.WithError(err).Errorf("purge of %q finished with errors", name)
			}
			if len(episodes) > 0 {
				removed[name] = episodes
			}
		}
	}

	verb := "purged"
	if c.Simulate {
		verb = "would purge"
	}
	for name, episodes := range removed {
		for _, episode := range episodes {
			fmt.Printf("%s %s: %s\n", verb, name, episode.Title)
		}
	}

	return nil
}

func fileOrStdout(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
