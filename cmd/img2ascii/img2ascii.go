package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/codegangsta/cli"
	"github.com/sirupsen/logrus"
	"github.com/wbrown/img2ascii"
	"github.com/wbrown/img2ascii/imageutil"
	"github.com/wbrown/img2ascii/stream"
	"github.com/wbrown/img2ascii/video"
	"github.com/wbrown/img2ascii/video/cv"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config",
		Usage: "YAML `FILE` with converter settings. Flags override it.",
	},
	cli.Float64Flag{
		Name:  "sample-rate,r",
		Usage: "Fraction of the source resolution kept per axis.",
		Value: 0.15,
	},
	cli.StringFlag{
		Name:  "ramp",
		Usage: "Symbol `RAMP`, darkest first, or one of classic, spaced, detailed, blocks.",
		Value: img2ascii.DefaultRamp,
	},
	cli.StringSliceFlag{
		Name:  "font",
		Usage: "TrueType `FONT` to try before the built-in list; gomono or basic select an embedded font.",
	},
	cli.Float64Flag{
		Name:  "font-size",
		Usage: "Font size in points.",
		Value: 12,
	},
	cli.StringFlag{
		Name:  "aspect",
		Usage: "Glyph aspect correction: auto (rasters only), always or never.",
		Value: "auto",
	},
	cli.StringFlag{
		Name:  "resample",
		Usage: "Downsampler: area, linear, nearest or lanczos.",
		Value: "area",
	},
	cli.StringFlag{
		Name:  "gray",
		Usage: "Intensity model: bt601 or lab.",
		Value: "bt601",
	},
	cli.StringFlag{
		Name:  "background",
		Usage: "Raster background `COLOR`: black, white or #rrggbb.",
		Value: "black",
	},
	cli.IntFlag{
		Name:  "workers",
		Usage: "Raster rows rendered in parallel; 0 uses one per CPU.",
	},
	cli.Float64Flag{
		Name:  "gamma",
		Usage: "`GAMMA` = 1.0 gives the original image.",
		Value: 1.0,
	},
	cli.Float64Flag{
		Name:  "brightness",
		Usage: "`BRIGHTNESS` from -100 to 100.",
	},
	cli.Float64Flag{
		Name:  "contrast",
		Usage: "`CONTRAST` from -100 to 100.",
	},
	cli.Float64Flag{
		Name:  "sharpen",
		Usage: "`SIGMA` of the sharpening filter; 0 disables.",
	},
	cli.BoolFlag{
		Name:  "invert",
		Usage: "Invert the image before conversion.",
	},
	cli.BoolFlag{
		Name:  "verbose,v",
		Usage: "Log debug output.",
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "img2ascii"
	app.Version = "0.1.0"
	app.Usage = "Convert images and video into character art."
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:      "text",
			Usage:     "print an image as text",
			ArgsUsage: "IMAGE",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "output,o", Usage: "write to `FILE` instead of stdout"},
			},
			Action: textAction,
		},
		{
			Name:      "render",
			Usage:     "render an image as a glyph raster",
			ArgsUsage: "IMAGE OUTPUT",
			Action:    renderAction,
		},
		{
			Name:      "batch",
			Usage:     "render every image in a directory",
			ArgsUsage: "INPUT_DIR OUTPUT_DIR",
			Action:    batchAction,
		},
		{
			Name:      "video",
			Usage:     "convert a video frame by frame",
			ArgsUsage: "VIDEO",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "output,o", Usage: "write to `PATH`: .mp4/.avi video, .gif, .txt, or a directory of PNGs"},
				cli.StringFlag{Name: "backend", Usage: "decoder: ffmpeg or opencv"},
				cli.BoolFlag{Name: "preview", Usage: "show frames in a window (opencv); q quits"},
				cli.BoolFlag{Name: "play,p", Usage: "play frames as text in the terminal"},
			},
			Action: videoAction,
		},
		{
			Name:      "serve",
			Usage:     "stream a video as text frames over websockets",
			ArgsUsage: "VIDEO",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "addr", Usage: "listen `ADDR`", Value: ":8080"},
				cli.StringFlag{Name: "backend", Usage: "decoder: ffmpeg or opencv"},
			},
			Action: serveAction,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fail(err error) error {
	return cli.NewExitError(err.Error(), 1)
}

func newLogger(c *cli.Context) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if c.GlobalBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// loadConfig reads --config, if any, then applies the flags that were set
// explicitly.
func loadConfig(c *cli.Context) (img2ascii.Config, error) {
	cfg := img2ascii.DefaultConfig()
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = img2ascii.LoadConfig(path); err != nil {
			return cfg, err
		}
	}

	if c.GlobalIsSet("sample-rate") {
		cfg.SampleRate = c.GlobalFloat64("sample-rate")
	}
	if c.GlobalIsSet("ramp") {
		cfg.Ramp = c.GlobalString("ramp")
	}
	if c.GlobalIsSet("font") {
		cfg.Fonts = c.GlobalStringSlice("font")
	}
	if c.GlobalIsSet("font-size") {
		cfg.FontSize = c.GlobalFloat64("font-size")
	}
	if c.GlobalIsSet("aspect") {
		cfg.Aspect = c.GlobalString("aspect")
	}
	if c.GlobalIsSet("resample") {
		cfg.Resample = c.GlobalString("resample")
	}
	if c.GlobalIsSet("gray") {
		cfg.Gray = c.GlobalString("gray")
	}
	if c.GlobalIsSet("background") {
		cfg.Background = c.GlobalString("background")
	}
	if c.GlobalIsSet("workers") {
		cfg.Workers = c.GlobalInt("workers")
	}
	if c.GlobalIsSet("gamma") {
		cfg.Adjust.Gamma = c.GlobalFloat64("gamma")
	}
	if c.GlobalIsSet("brightness") {
		cfg.Adjust.Brightness = c.GlobalFloat64("brightness")
	}
	if c.GlobalIsSet("contrast") {
		cfg.Adjust.Contrast = c.GlobalFloat64("contrast")
	}
	if c.GlobalIsSet("sharpen") {
		cfg.Adjust.Sharpen = c.GlobalFloat64("sharpen")
	}
	if c.GlobalBool("invert") {
		cfg.Adjust.Invert = true
	}
	if c.IsSet("backend") {
		cfg.Video.Backend = c.String("backend")
	}
	if c.Bool("preview") {
		cfg.Video.Preview = true
	}
	return cfg, nil
}

func newConverter(c *cli.Context, log logrus.FieldLogger) (*img2ascii.Converter, img2ascii.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cfg, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, cfg, err
	}
	conv, err := img2ascii.New(append(opts, img2ascii.WithLogger(log))...)
	return conv, cfg, err
}

func textAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("text: expected one IMAGE argument", 1)
	}
	log := newLogger(c)
	conv, _, err := newConverter(c, log)
	if err != nil {
		return fail(err)
	}
	img, err := imageutil.LoadImage(c.Args().First())
	if err != nil {
		return fail(err)
	}
	grid, err := conv.Convert(img)
	if err != nil {
		return fail(err)
	}

	var w io.Writer = os.Stdout
	if out := c.String("output"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fail(err)
		}
		defer f.Close()
		w = f
	}
	if _, err := grid.WriteTo(w); err != nil {
		return fail(err)
	}
	return nil
}

func renderAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.NewExitError("render: expected IMAGE and OUTPUT arguments", 1)
	}
	log := newLogger(c)
	conv, _, err := newConverter(c, log)
	if err != nil {
		return fail(err)
	}
	img, err := imageutil.LoadImage(c.Args().Get(0))
	if err != nil {
		return fail(err)
	}
	frame, err := conv.Render(img)
	if err != nil {
		return fail(err)
	}
	out := c.Args().Get(1)
	if err := imageutil.SaveImage(frame.Raster, out); err != nil {
		return fail(err)
	}
	log.WithFields(logrus.Fields{
		"path": out,
		"cols": frame.Grid.Cols,
		"rows": frame.Grid.Rows,
	}).Info("rendered")
	return nil
}

func batchAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.NewExitError("batch: expected INPUT_DIR and OUTPUT_DIR arguments", 1)
	}
	log := newLogger(c)
	conv, _, err := newConverter(c, log)
	if err != nil {
		return fail(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n, err := img2ascii.BatchConvert(ctx, c.Args().Get(0), c.Args().Get(1), conv, log)
	if err != nil {
		return fail(err)
	}
	log.WithField("files", n).Info("batch complete")
	return nil
}

// openSource picks a decoder for path. GIFs are always decoded in process.
func openSource(path, backend string) (video.Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".gif") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open video file: %w", err)
		}
		defer f.Close()
		return video.DecodeGIF(f)
	}
	switch strings.ToLower(backend) {
	case "", "ffmpeg":
		return video.OpenFFmpeg(path)
	case "opencv":
		return cv.OpenCapture(path)
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

// openSink picks an output for path by extension; anything without a known
// extension is a directory of PNG frames. The returned closer releases any
// file the sink writes to.
func openSink(path, backend string, fps float64) (sink video.Sink, raster bool, closer func() error, err error) {
	closer = func() error { return nil }
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".avi", ".mov", ".mkv":
		if strings.EqualFold(backend, "opencv") {
			return cv.NewWriter(path, fps), true, closer, nil
		}
		return video.NewFFmpegSink(path, fps), true, closer, nil
	case ".gif":
		f, err := os.Create(path)
		if err != nil {
			return nil, false, nil, err
		}
		return video.NewGIFSink(f, fps), true, f.Close, nil
	case ".txt":
		f, err := os.Create(path)
		if err != nil {
			return nil, false, nil, err
		}
		return &video.TextSink{W: f}, false, f.Close, nil
	}
	return &video.PNGSink{Dir: path}, true, closer, nil
}

func videoAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("video: expected one VIDEO argument", 1)
	}
	log := newLogger(c)
	conv, cfg, err := newConverter(c, log)
	if err != nil {
		return fail(err)
	}

	src, err := openSource(c.Args().First(), cfg.Video.Backend)
	if err != nil {
		return fail(err)
	}
	defer src.Close()
	log.WithFields(logrus.Fields{
		"path": c.Args().First(),
		"fps":  fmt.Sprintf("%.2f", src.FPS()),
	}).Debug("opened video")

	p := &video.Pipeline{
		Converter:     conv,
		Source:        src,
		ProgressEvery: cfg.Video.ProgressEvery,
		Log:           log,
	}

	var sinks video.MultiSink
	if out := c.String("output"); out != "" {
		sink, raster, closeFile, err := openSink(out, cfg.Video.Backend, src.FPS())
		if err != nil {
			return fail(err)
		}
		defer closeFile()
		sinks = append(sinks, sink)
		p.Raster = raster
	}
	if c.Bool("play") {
		sinks = append(sinks, &video.TerminalSink{W: os.Stdout, Delay: video.FrameDelay(src.FPS())})
	}
	if len(sinks) > 0 {
		p.Sink = sinks
	}
	if cfg.Video.Preview {
		win := cv.NewWindow()
		defer win.Close()
		p.Display = win
		p.Raster = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	stats, err := p.Run(ctx)
	closeErr := sinks.Close()
	if err != nil && ctx.Err() == nil {
		return fail(err)
	}
	if closeErr != nil {
		return fail(closeErr)
	}
	log.WithFields(logrus.Fields{
		"frames": stats.Frames,
		"fps":    fmt.Sprintf("%.2f", stats.FPS()),
		"state":  stats.State.String(),
	}).Info("video complete")
	return nil
}

func serveAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("serve: expected one VIDEO argument", 1)
	}
	log := newLogger(c)
	conv, cfg, err := newConverter(c, log)
	if err != nil {
		return fail(err)
	}
	path := c.Args().First()
	if _, err := os.Stat(path); err != nil {
		return fail(err)
	}
	srv := stream.NewServer(conv, func() (video.Source, error) {
		return openSource(path, cfg.Video.Backend)
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Start(c.String("addr")); err != nil {
		return fail(err)
	}
	return nil
}
