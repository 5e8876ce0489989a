package main

import (
	"context"
	"encoding/json"
	"fmt"

	"narrator/internal/app/narrator"

	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit a narration and print the result",
		Long: `Submit a narration request, fetch its result and print the audio URL
and the narration text.

Every field defaults to the sample request of the bundled web page.

Example:
  narrate generate -u http://localhost:7860 --title "Tomate Cherry" --language es`,
		RunE: runGenerate,
	}

	addRequestFlags(cmd)

	return cmd
}

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a narration through the single call endpoint",
		Long: `Send the request to /api/predict and print the raw outputs as JSON.

Example:
  narrate predict -u http://localhost:7860`,
		RunE: runPredict,
	}

	addRequestFlags(cmd)

	return cmd
}

func addRequestFlags(cmd *cobra.Command) {
	sample := narrator.SampleRequest()

	flags := cmd.Flags()
	flags.String("title", sample.Title, "plant title")
	flags.String("location", sample.Location, "plant location")
	flags.String("image", "", "plant image path or address (default the sample image)")
	flags.String("image-url", "", "plant image URL, used when --image is empty")
	flags.String("description", sample.Description, "plant description")
	flags.String("tasks", sample.Tasks, "tasks done on the plant")
	flags.String("comments", sample.Comments, "additional comments")
	flags.String("language", sample.Language, "narration language code")
	flags.String("voice", sample.Voice, "narration voice")
}

func requestFromFlags(cmd *cobra.Command) narrator.Request {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	image := narrator.FileRef{Path: get("image"), URL: get("image-url")}
	if image.Path == "" && image.URL == "" {
		image = narrator.SampleRequest().PlantImage
	}

	return narrator.Request{
		Title:       get("title"),
		Location:    get("location"),
		PlantImage:  image,
		Description: get("description"),
		Tasks:       get("tasks"),
		Comments:    get("comments"),
		Language:    get("language"),
		Voice:       get("voice"),
	}
}

func newService(cmd *cobra.Command) (*narrator.Service, context.Context, context.CancelFunc, error) {
	client, err := newGradioClient(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)

	return narrator.NewService(newLogger(cmd), client, nil, nil), ctx, cancel, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	service, ctx, cancel, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	narration, err := service.Generate(ctx, requestFromFlags(cmd))
	if err != nil {
		return err
	}

	printLines(cmd.OutOrStdout(),
		"Audio: "+narration.AudioURL,
		"Text:  "+narration.Text,
	)

	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	service, ctx, cancel, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	out, err := service.Predict(ctx, requestFromFlags(cmd))
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}

	printLines(cmd.OutOrStdout(), string(encoded))

	return nil
}
