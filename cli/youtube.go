package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func YouTubeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "youtube [channel_id]",
		Short: "Ingest transcripts from a YouTube channel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if a.youtube == nil {
				return fmt.Errorf("youtube loader is not configured: %w", a.cfg.ValidateYouTube())
			}
			channelID := a.cfg.YouTube.ChannelID
			if len(args) > 0 {
				channelID = args[0]
			}
			if channelID == "" {
				return fmt.Errorf("a channel id is required, pass one or set YOUTUBE_CHANNEL_ID")
			}
			maxVideos, err := cmd.Flags().GetInt64("max-videos")
			if err != nil {
				return err
			}

			report, err := a.youtube.LoadChannel(ctx, channelID, maxVideos)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ingested %d videos from channel %s\n", len(report.DocumentIDs), channelID)
			for _, skipped := range report.Skipped {
				fmt.Fprintf(out, "skipped %s (%s): %s\n", skipped.VideoID, skipped.Title, skipped.Reason)
			}
			return nil
		},
	}
	cmd.Flags().Int64("max-videos", 0, "Limit on videos to load (0 uses the configured default)")
	return cmd
}
