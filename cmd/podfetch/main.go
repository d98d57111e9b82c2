package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

type Opts struct {
	ConfigPath string `long:"config" short:"c" default:"config.toml" env:"PODFETCH_CONFIG_PATH" description:"path to the configuration file"`
	Debug      bool   `long:"debug" description:"enable debug logging"`
	NoBanner   bool   `long:"no-banner" description:"suppress the startup banner"`
}

const banner = `
                 _  __     _       _
 _ __   ___   __| |/ _| ___| |_ ___| |__
| '_ \ / _ \ / _' | |_ / _ \ __/ __| '_ \
| |_) | (_) | (_| |  _|  __/ || (__| | | |
| .__/ \___/ \__,_|_|  \___|\__\___|_| |_|
|_|
`

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var opts Opts

func main() {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)

	mustAddCommand(parser, "update", "fetch new episodes", "Fetch new episodes for all or the given subscriptions.", &updateCommand{})
	mustAddCommand(parser, "add", "add a subscription", "Add a new podcast subscription.", &addCommand{})
	mustAddCommand(parser, "ls", "list subscriptions", "List all configured subscriptions.", &lsCommand{})
	mustAddCommand(parser, "show", "show a subscription", "Show details and episodes for one subscription.", &showCommand{})
	mustAddCommand(parser, "remove", "remove a subscription", "Remove a subscription and optionally its downloaded files.", &removeCommand{})
	mustAddCommand(parser, "edit", "edit a subscription", "Change properties of an existing subscription.", &editCommand{})
	mustAddCommand(parser, "mark", "mark episodes read", "Flag an episode as read or unread.", &markCommand{})
	mustAddCommand(parser, "purge", "apply retention policy", "Delete episodes beyond the configured retention count.", &purgeCommand{})
	mustAddCommand(parser, "export", "export subscriptions as OPML", "Write the subscription list as an OPML document.", &exportCommand{})
	mustAddCommand(parser, "import", "import subscriptions from OPML", "Add subscriptions from an OPML document.", &importCommand{})
	mustAddCommand(parser, "daemon", "run periodic updates", "Keep running and update subscriptions on a schedule.", &daemonCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			return
		}

		log.WithError(err).Fatal("command failed")
	}
}

func mustAddCommand(parser *flags.Parser, name, short, long string, cmd interface{}) {
	if _, err := parser.AddCommand(name, short, long, cmd); err != nil {
		log.WithError(err).Fatalf("failed to register command %q", name)
	}
}
