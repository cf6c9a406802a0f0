package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tendant/simple-publish/internal/logger"
	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errAborted = errors.New("publish aborted")

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Validate and publish a profile or job posting",
	Example: `  simplepublish publish --subject profile --fields profile.yaml \
    --attach profilePicture=me.png --attach certification=aws.pdf`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPublish(cmd)
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringP("subject", "s", string(simplepublish.SubjectProfile), "submission subject: profile or job")
	publishCmd.Flags().StringP("fields", "f", "", "YAML or JSON file with the submission fields")
	publishCmd.Flags().StringArrayP("attach", "a", nil, "attachment as role=path, repeatable")
	publishCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before uploading")

	publishCmd.MarkFlagRequired("fields")
}

func runPublish(cmd *cobra.Command) error {
	ctx := context.Background()

	zl, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer zl.Sync()

	cliConfig, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	subject, _ := cmd.Flags().GetString("subject")
	fieldsFile, _ := cmd.Flags().GetString("fields")
	attachValues, _ := cmd.Flags().GetStringArray("attach")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	fields, err := readFields(simplepublish.SubjectType(subject), fieldsFile)
	if err != nil {
		return err
	}
	attachments, err := readAttachments(attachValues)
	if err != nil {
		return err
	}

	serverConfig, err := config.Load(cliConfig.options()...)
	if err != nil {
		return fmt.Errorf("loading publish configuration: %w", err)
	}
	zl = logger.WithService(zl, serverConfig.Provider, serverConfig.Environment)
	if serverConfig.Provider == config.ProviderCAS && serverConfig.Storage.Type == "memory" {
		zl.Warn("publishing to in-memory storage, content is discarded on exit")
	}

	publisher, err := serverConfig.BuildPublisher(ctx, zl)
	if err != nil {
		return fmt.Errorf("building publisher: %w", err)
	}

	// validate locally before asking, so a rejected submission never prompts
	if err := simplepublish.ValidateFields(fields); err != nil {
		return err
	}
	if err := simplepublish.ValidateByRole(attachments, publisher.Rules()); err != nil {
		return err
	}

	if !autoApprove {
		if err := confirm(subject, attachments); err != nil {
			return err
		}
	}

	manifest, err := publisher.Publish(ctx, simplepublish.PublishRequest{Fields: fields, Attachments: attachments})
	if err != nil {
		return err
	}

	zl.Info("published",
		zap.String("content_id", manifest.ManifestReference.ContentID),
		zap.String("url", manifest.ManifestReference.URL),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

func confirm(subject string, attachments map[simplepublish.Role][]simplepublish.Attachment) error {
	files := 0
	for _, list := range attachments {
		files += len(list)
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Publish %s with %d attachment(s)?", subject, files),
		Items: []string{PromptYes, PromptNo},
	}
	_, result, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	if result != PromptYes {
		return errAborted
	}
	return nil
}
