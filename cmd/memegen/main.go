package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	logging "github.com/ipfs/go-log/v2"
	"github.com/memelab/memegen/internal/cmdutil"
	"github.com/memelab/memegen/pkg/catalog"
	"github.com/memelab/memegen/pkg/sink"
	"github.com/urfave/cli/v2"
)

var log = logging.Logger("memegen/main")

func main() {
	configFlag := &cli.StringFlag{
		Name:  "config",
		Usage: "Path to the config file.",
	}

	app := &cli.App{
		Name:                 "memegen",
		Usage:                "generate memes from preconfigured templates",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Aliases:   []string{"gen"},
				Usage:     "Generate a meme from a template.",
				UsageText: "generate <template> [text...]",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "",
						Usage:   "Output path. \"-\" writes the image to stdout; default is <template>.<format> in the working directory.",
					},
					&cli.Float64Flag{
						Name:    "max-size",
						Aliases: []string{"m"},
						Value:   0,
						Usage:   "Maximum font size for region text.",
					},
					&cli.StringFlag{
						Name:    "watermark",
						Aliases: []string{"w"},
						Value:   "",
						Usage:   "Watermark text, replacing the configured one.",
					},
					&cli.BoolFlag{
						Name:  "no-watermark",
						Value: false,
						Usage: "Disable the watermark.",
					},
				},
				Action:       generate,
				BashComplete: completeTemplates,
			},
			{
				Name:    "templates",
				Aliases: []string{"list-templates"},
				Usage:   "List every resolvable template name.",
				Flags:   []cli.Flag{configFlag},
				Action:  templates,
			},
			{
				Name:   "sources",
				Usage:  "List the configured template sources.",
				Flags:  []cli.Flag{configFlag},
				Action: sources,
			},
			{
				Name:    "update",
				Aliases: []string{"update-sources"},
				Usage:   "Fetch new templates from the configured sources.",
				Flags:   []cli.Flag{configFlag},
				Action:  update,
			},
			{
				Name:      "make-template",
				Usage:     "Save a new template into the first local source.",
				UsageText: "make-template --input <image> <name> [LEFT-TOP-RIGHT-BOTTOM...]",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Path of the base image.",
					},
				},
				Action: makeTemplate,
			},
		},
	}

	// set up a context that is canceled when a command is interrupted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			log.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}

		signal.Stop(interrupt)
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func generate(cCtx *cli.Context) error {
	template := cCtx.Args().First()
	if template == "" {
		return fmt.Errorf("template name is required")
	}

	cfg := cmdutil.MustLoadConfig(cCtx.String("config"))
	eng := cmdutil.MustGetEngineWith(cfg, cCtx.String("watermark"), cCtx.Bool("no-watermark"), cCtx.Float64("max-size"))

	img, err := eng.Generate(template, cCtx.Args().Tail())
	if err != nil {
		return err
	}

	out := cmdutil.SinkFor(cCtx.String("output"), template, img.Format, sink.Writer{W: os.Stdout})
	if err := out.Deliver(img); err != nil {
		return fmt.Errorf("delivering image: %w", err)
	}
	return nil
}

func templates(cCtx *cli.Context) error {
	eng := cmdutil.MustGetEngine(cmdutil.MustLoadConfig(cCtx.String("config")))
	names, err := eng.ListTemplates()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func completeTemplates(cCtx *cli.Context) {
	if cCtx.NArg() > 0 {
		return
	}
	eng := cmdutil.MustGetEngine(cmdutil.MustLoadConfig(cCtx.String("config")))
	names, err := eng.ListTemplates()
	if err != nil {
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func sources(cCtx *cli.Context) error {
	eng := cmdutil.MustGetEngine(cmdutil.MustLoadConfig(cCtx.String("config")))
	for _, d := range eng.Descriptors() {
		fmt.Println(d)
	}
	return nil
}

func update(cCtx *cli.Context) error {
	eng := cmdutil.MustGetEngine(cmdutil.MustLoadConfig(cCtx.String("config")))

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond) // Spinner: ⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏
	s.Suffix = " syncing template sources"
	s.Start()
	outcomes, err := eng.UpdateSources(cCtx.Context)
	s.Stop()
	if err != nil {
		return err
	}

	failures := 0
	for _, o := range outcomes {
		if o.OK() {
			fmt.Printf("%s: %s\n", o.Alias, o.Action)
		} else {
			failures++
			fmt.Printf("%s: failed: %v\n", o.Alias, o.Err)
		}
	}
	if failures > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d source(s) failed to sync", failures, len(outcomes)), 1)
	}
	return nil
}

func makeTemplate(cCtx *cli.Context) error {
	name := cCtx.Args().First()
	if name == "" {
		return fmt.Errorf("template name is required")
	}

	regions := make([]catalog.Region, 0, cCtx.NArg()-1)
	for _, coord := range cCtx.Args().Tail() {
		region, err := parseRegion(coord)
		if err != nil {
			return err
		}
		regions = append(regions, region)
	}

	raw, err := os.ReadFile(cCtx.String("input"))
	if err != nil {
		return fmt.Errorf("reading input image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding input image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encoding base image: %w", err)
	}

	eng := cmdutil.MustGetEngine(cmdutil.MustLoadConfig(cCtx.String("config")))
	if err := eng.MakeTemplate(name, buf.Bytes(), regions); err != nil {
		return err
	}
	fmt.Printf("saved template %s with %d region(s)\n", name, len(regions))
	return nil
}

// parseRegion parses a LEFT-TOP-RIGHT-BOTTOM coordinate literal.
func parseRegion(coord string) (catalog.Region, error) {
	parts := strings.Split(coord, "-")
	if len(parts) != 4 {
		return catalog.Region{}, fmt.Errorf("incorrect coordinate literal %q, want LEFT-TOP-RIGHT-BOTTOM", coord)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return catalog.Region{}, fmt.Errorf("incorrect coordinate literal %q: %w", coord, err)
		}
		nums[i] = n
	}
	return catalog.Region{Min: image.Pt(nums[0], nums[1]), Max: image.Pt(nums[2], nums[3])}, nil
}
