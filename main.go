package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/mrsingh-rishi/wit-stream/audio"
	"github.com/mrsingh-rishi/wit-stream/config"
	"github.com/mrsingh-rishi/wit-stream/logging"
	"github.com/mrsingh-rishi/wit-stream/mic"
	"github.com/mrsingh-rishi/wit-stream/prompt"
	"github.com/mrsingh-rishi/wit-stream/session"
	"github.com/mrsingh-rishi/wit-stream/stt"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "wit-stream",
		Usage: "Stream microphone audio to Wit.ai and print transcriptions",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv file to load; .env is used when present",
			},
			&cli.StringFlag{
				Name:    "language",
				Aliases: []string{"l"},
				Usage:   "language code, prompted for when empty",
			},
			&cli.StringFlag{
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "audio input device index or name",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Action: stream,
		Commands: []*cli.Command{
			{
				Name:   "devices",
				Usage:  "List audio input devices",
				Action: listDevices,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatalln(err)
	}
}

func stream(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.StringSlice("env-file")...)
	if err != nil {
		return err
	}
	if device := cmd.String("device"); device != "" {
		cfg.Device = device
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)
	if len(cfg.EnvFiles) == 0 {
		logger.Debug("no .env file found, using process environment")
	}
	logger.WithField("languages", cfg.Credentials.Languages()).Debug("credentials loaded")

	language := cmd.String("language")
	if language == "" {
		if language, err = prompt.Language(os.Stdin, os.Stdout, cfg.Credentials.Languages()); err != nil {
			return err
		}
	}
	fmt.Printf("Starting real-time transcription for language: %s\n", language)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := audio.Format{
		SampleRate:      cfg.SampleRate,
		Channels:        cfg.Channels,
		FramesPerBuffer: cfg.FramesPerBuffer,
	}
	openMic := func() (audio.Source, error) {
		m, err := mic.Open(format, cfg.Device, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	client := stt.NewClient(cfg, nil, logger)
	return session.New(session.FromClient(client), openMic, os.Stdout, logger).Run(ctx, language)
}

func listDevices(ctx context.Context, cmd *cli.Command) error {
	devices, err := mic.InputDevices()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tCHANNELS\tSAMPLE RATE\tDEFAULT")
	for _, d := range devices {
		def := ""
		if d.Default {
			def = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%.0f\t%s\n", d.Index, d.Name, d.Channels, d.SampleRate, def)
	}
	return w.Flush()
}
