package root

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/rget-dev/rget/pkg/cli"
	"github.com/rget-dev/rget/pkg/client"
	"github.com/rget-dev/rget/pkg/config"
	"github.com/rget-dev/rget/pkg/download"
	"github.com/rget-dev/rget/pkg/extract"
	"github.com/rget-dev/rget/pkg/optname"
)

const rootLongDesc = `
rget

rget is a concurrent file downloader. It probes the target URL for byte-range
support, splits the resource into an adaptive number of chunks, downloads the
chunks in parallel, and reassembles them into a single file. Downloads can be
paused and resumed while in flight, and an interrupted download can be
continued from the bytes already on disk with --continue.

If the downloaded file is a tar archive (optionally gzip, bzip2, xz or lz4
compressed), rget can unpack it in place after the download with --extract.
`

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rget [flags] <url> [dest]",
		Short: "rget",
		Long:  rootLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.PersistentStartupProcessFlags()
		},
		RunE:    runRootCMD,
		Args:    cobra.RangeArgs(1, 2),
		Example: `  rget https://example.com/file.tar.gz file.tar.gz`,
	}
	cmd.Flags().BoolP(optname.OptExtract, "x", false, "Extract tar archive into the destination directory after download")
	cmd.Flags().Bool(optname.OptStage, false, "Stage chunks in temporary files and merge them, instead of writing in place")
	cmd.Flags().Bool(optname.OptContinue, false, "Continue an interrupted download from the bytes already on disk")
	cmd.SetUsageTemplate(cli.UsageTemplate)
	if err := config.AddRootPersistentFlags(cmd); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cmd
}

func runRootCMD(cmd *cobra.Command, args []string) error {
	// After the PreRun functions we don't want usage printed on errors
	cmd.SilenceUsage = true

	urlString := args[0]
	dest := ""
	if len(args) == 2 {
		dest = args[1]
	}

	log.Info().Str("url", urlString).Str("dest", dest).Msg("Initiating")

	if pidPath := viper.GetString(optname.OptPIDFile); pidPath != "" {
		pidFile, err := cli.NewPIDFile(pidPath)
		if err != nil {
			return err
		}
		if err := pidFile.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := pidFile.Release(); err != nil {
				log.Error().Err(err).Msg("Error releasing PID file")
			}
		}()
	}

	return rootExecute(cmd.Context(), urlString, dest)
}

// rootExecute wires the flag values into the engine, runs the download with a
// progress bar attached, and optionally extracts the result.
func rootExecute(ctx context.Context, urlString, dest string) error {
	httpClient := client.New(client.Options{
		MaxRetries:     viper.GetInt(optname.OptRetries),
		ConnectTimeout: viper.GetDuration(optname.OptConnTimeout),
	})
	opts := download.Options{
		Concurrency:  viper.GetInt(optname.OptConcurrency),
		Chunks:       viper.GetInt(optname.OptChunks),
		Stage:        viper.GetBool(optname.OptStage),
		Continue:     viper.GetBool(optname.OptContinue),
		RequireRange: viper.GetBool(optname.OptRequireRange),
		Client:       httpClient,
	}

	d, err := download.New(ctx, urlString, dest, opts)
	if err != nil {
		return err
	}
	if err := cli.EnsureDestinationNotExist(d.Dest()); err != nil {
		return err
	}

	d.Start(ctx)
	if err := awaitWithProgressBar(ctx, d); err != nil {
		return err
	}

	if viper.GetBool(optname.OptExtract) {
		return extract.ExtractFile(d.Dest(), filepath.Dir(d.Dest()))
	}
	return nil
}

// awaitWithProgressBar renders the shared progress tracker as a terminal bar
// until the download reaches a terminal state.
func awaitWithProgressBar(ctx context.Context, d *download.Downloader) error {
	p := mpb.New(mpb.WithWidth(64))
	name := filepath.Base(d.Dest())
	bar := p.New(d.Size(),
		mpb.BarStyle(),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
		),
		mpb.AppendDecorators(
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f"),
		),
	)
	bar.SetCurrent(d.Progress().Bytes())

	sub := d.Progress().Subscribe()
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case cur := <-sub:
				bar.SetCurrent(cur)
			case <-stop:
				return
			}
		}
	}()

	err := d.Wait(ctx)
	close(stop)
	if err != nil {
		bar.Abort(true)
	} else {
		bar.SetCurrent(d.Size())
	}
	p.Wait()
	return err
}
