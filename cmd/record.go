package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/camcorder/internal/recording"
	"github.com/smazurov/camcorder/internal/testpattern"
)

// createRecordCmd records synthetic frames for a fixed duration. It
// drives the same session the capture path would, so the resulting file
// exercises the full encoder and muxer chain.
func createRecordCmd(opts *Options) *cobra.Command {
	var seconds int
	var format string
	var noAudio bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a test-pattern clip",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			a.serveMetrics(opts.MetricsAddr)

			s := a.session
			if format != "" && !s.SetFormat(format) {
				return fmt.Errorf("unknown format %q", format)
			}
			if noAudio {
				s.SetRecordAudio(false)
			}

			p := s.Parameters()
			video := testpattern.NewVideoSource(p.VideoCaps)
			fps := p.VideoCaps.FPS
			samplesPerFrame := p.AudioCaps.Rate * fps.Den / fps.Num
			audio := testpattern.NewAudioSource(p.AudioCaps, samplesPerFrame)

			if !s.SetState(recording.StateActive) {
				return fmt.Errorf("could not start recording")
			}
			a.logger.Info("Recording test pattern", "location", s.Location(), "seconds", seconds)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			frames := seconds * fps.Num / fps.Den
			for i := 0; i < frames && ctx.Err() == nil; i++ {
				s.VideoInput(video.Next())
				if p.RecordAudio {
					s.AudioInput(audio.Next())
				}
			}

			if !s.SetState(recording.StateIdle) {
				return fmt.Errorf("could not stop recording")
			}
			a.extractor.Wait()

			fmt.Fprintln(cmd.OutOrStdout(), s.Location())
			fmt.Fprintln(cmd.OutOrStdout(), a.extractor.ThumbnailPath(s.Location()))
			return nil
		},
	}

	cmd.Flags().IntVar(&seconds, "seconds", 5, "Clip length in seconds")
	cmd.Flags().StringVar(&format, "format", "", "Container format key, e.g. muxer.mkv:mkv")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Disable the audio stream")
	return cmd
}
