package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hkguide/server/adapters/tts"
)

var (
	speakVoice  string
	speakOutput string
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List synthesis voices offered by the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := gatewayVoices(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(resp.Voices)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID")
		for _, v := range resp.Voices {
			fmt.Fprintf(w, "%s\t%s\n", v.Name, v.ID)
		}
		return w.Flush()
	},
}

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Synthesize text to an mp3 file",
	Long: `Synthesize text to an mp3 file with ElevenLabs.

Requires ELEVEN_LABS_API_KEY.

Examples:
  hkchat speak "Welcome to Hong Kong" --voice Josh -o welcome.mp3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := tts.NewElevenLabsConfigFromEnv()
		if config.APIKey == "" {
			return errors.New("ELEVEN_LABS_API_KEY is not set")
		}
		synth, err := tts.NewElevenLabsTTS(config, newLogger())
		if err != nil {
			return err
		}

		audio, err := synth.Synthesize(cmd.Context(), strings.Join(args, " "), speakVoice)
		if err != nil {
			return err
		}
		if err := os.WriteFile(speakOutput, audio, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", speakOutput, err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(audio), speakOutput)
		return nil
	},
}

func init() {
	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "voice name or id (default Alice)")
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "speech.mp3", "output file")
}
