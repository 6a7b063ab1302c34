package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/camcorder/internal/testpattern"
)

// createPhotoCmd captures a single test-pattern frame to an image file.
func createPhotoCmd(opts *Options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Capture a test-pattern still image",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			s := a.session
			p := s.Parameters()
			if output == "" {
				output = "photo." + p.ImageFormat
			}
			video := testpattern.NewVideoSource(p.VideoCaps)
			s.VideoInput(video.Next())

			if !s.TakePhoto() {
				return fmt.Errorf("no frame available")
			}
			if !s.SavePhoto(output) {
				return fmt.Errorf("could not save photo to %s", output)
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output image path (default photo.<image format>)")
	return cmd
}
