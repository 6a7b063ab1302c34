package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/camcorder/internal/media"
)

// createFormatsCmd lists the available container formats and codecs.
func createFormatsCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List available container formats and codecs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			def := a.catalog.DefaultFormat()
			for _, fd := range a.catalog.FormatDescriptors() {
				key := fd.Key()
				marker := " "
				if key == def {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\t%s\n", marker, key, fd.Description)
				fmt.Fprintf(out, "    audio: %s (default %s)\n",
					strings.Join(fd.AudioCodecs, ", "), fd.DefaultAudioCodec)
				fmt.Fprintf(out, "    video: %s (default %s)\n",
					strings.Join(fd.VideoCodecs, ", "), fd.DefaultVideoCodec)
			}

			fmt.Fprintln(out, "\ncodecs:")
			for _, cd := range a.catalog.Codecs() {
				kind := "audio"
				if cd.Type == media.TypeVideo {
					kind = "video"
				}
				fmt.Fprintf(out, "  %s\t%s\t%s\n", cd.Key(), kind, cd.Description)
			}
			return nil
		},
	}
}

// createShowCmd prints the active recording parameters.
func createShowCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the persisted recording parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			p := a.session.Parameters()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format:        %s\n", p.Format)
			fmt.Fprintf(out, "audio codec:   %s\n", p.AudioCodec)
			fmt.Fprintf(out, "video codec:   %s\n", p.VideoCodec)
			fmt.Fprintf(out, "video:         %dx%d@%s, %d bps, gop %d ms\n",
				p.VideoCaps.Width, p.VideoCaps.Height, p.VideoCaps.FPS, p.VideoBitrate, p.GOP)
			fmt.Fprintf(out, "audio:         %d Hz, %d bps, enabled %t\n",
				p.AudioCaps.Rate, p.AudioBitrate, p.RecordAudio)
			fmt.Fprintf(out, "video dir:     %s\n", p.VideoDir)
			if p.LastVideo != "" {
				fmt.Fprintf(out, "last video:    %s\n", p.LastVideo)
			}
			return nil
		},
	}
}
