package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coupn-app/coupn/internal/app"
	"github.com/coupn-app/coupn/internal/config"
	"github.com/coupn-app/coupn/internal/voice"
)

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about your promotions",
		Long: `Ask a question about your promotions and get a short answer.

Pass the question as text, or record it in a file and pass --audio. With
--speak or --out the answer is also spoken, either through the configured
player or saved to a file.`,
		Example: `  coupn ask "any deals on pizza?"
  coupn ask --audio question.wav --out answer.mp3`,
		RunE: runAsk,
	}

	cmd.Flags().String("audio", "", "Audio file holding the spoken question")
	cmd.Flags().String("out", "", "Save the spoken answer to this file")
	cmd.Flags().Bool("speak", false, "Play the spoken answer")
	cmd.Flags().Bool("remote", false, "Use the coupn server")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	audioPath, _ := cmd.Flags().GetString("audio")
	outPath, _ := cmd.Flags().GetString("out")
	speak, _ := cmd.Flags().GetBool("speak")
	remote, _ := cmd.Flags().GetBool("remote")

	question := joinArgs(args)
	if question == "" && audioPath == "" {
		return fmt.Errorf("ask a question or pass --audio")
	}

	userID := config.UserID()
	p, err := loadProviders(remote, userID)
	if err != nil {
		return err
	}

	promotions, err := loadPromotions(ctx, remote, userID)
	if err != nil {
		return err
	}
	state := app.NewState(userID)
	state.SetPromotions(promotions)

	var player voice.Player = voice.CommandPlayer{Command: viper.GetString("voice.play_command")}
	if outPath != "" {
		player = voice.FilePlayer{Path: outPath}
	}

	out := cmd.OutOrStdout()

	if audioPath != "" {
		pipeline := voice.NewPipeline(voice.Config{
			Recorder:    voice.FileRecorder{Path: audioPath},
			Transcriber: p.transcriber,
			Responder:   p.responder,
			Synthesizer: p.synthesizer,
			Player:      player,
			Source:      state,
			Logger:      slog.Default(),
			Filename:    filepath.Base(audioPath),
		})

		if err := pipeline.Start(ctx); err != nil {
			return err
		}
		err := pipeline.StopAndProcess(ctx)
		if t := pipeline.Transcript(); t != "" {
			_, _ = fmt.Fprintf(out, "You asked: %q\n", t)
		}
		if a := pipeline.Answer(); a != "" {
			_, _ = fmt.Fprintln(out, a)
		}
		return err
	}

	answer, err := p.responder.Answer(ctx, question, state.Promotions())
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}
	_, _ = fmt.Fprintln(out, answer)

	if !speak && outPath == "" {
		return nil
	}

	speech, err := p.synthesizer.Synthesize(ctx, answer)
	if err != nil {
		return fmt.Errorf("failed to synthesize answer: %w", err)
	}
	return player.Play(ctx, speech)
}
